package telemetry

import "log/slog"

// SlogReporter writes telemetry events to a structured logger.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter backed by logger. A nil logger falls
// back to slog.Default().
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (r *SlogReporter) Report(event string, level Level, details map[string]any) {
	attrs := make([]any, 0, 2*len(details)+2)
	attrs = append(attrs, "event", event)
	for k, v := range details {
		attrs = append(attrs, k, v)
	}

	switch level {
	case LevelDebug:
		r.logger.Debug("telemetry", attrs...)
	case LevelWarn:
		r.logger.Warn("telemetry", attrs...)
	case LevelError:
		r.logger.Error("telemetry", attrs...)
	default:
		r.logger.Info("telemetry", attrs...)
	}
}
