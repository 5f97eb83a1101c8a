// Package telemetry defines the reporter contract the engine emits
// classified events through. Reporters are fire-and-forget: the engine
// never waits on them and never inspects their outcome.
package telemetry

// Level classifies the severity of a telemetry event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Reporter receives one call per classified outcome. Implementations must
// not block; the engine calls them synchronously from its event loop.
type Reporter interface {
	Report(event string, level Level, details map[string]any)
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func(event string, level Level, details map[string]any)

func (f ReporterFunc) Report(event string, level Level, details map[string]any) {
	f(event, level, details)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Report(string, Level, map[string]any) {}

// Multi fans one event out to several reporters in order.
type Multi []Reporter

func (m Multi) Report(event string, level Level, details map[string]any) {
	for _, r := range m {
		r.Report(event, level, details)
	}
}
