package telemetry

import (
	"fmt"
	"strings"

	"github.com/Noirsys/aflr-viewbox/internal/metrics"
)

// PrometheusReporter maps telemetry events onto the Prometheus collectors
// in internal/metrics. It keeps the engine free of any direct metrics
// dependency: everything observable flows through Report.
type PrometheusReporter struct{}

func NewPrometheusReporter() *PrometheusReporter {
	return &PrometheusReporter{}
}

func (r *PrometheusReporter) Report(event string, level Level, details map[string]any) {
	switch {
	case event == "parsed" || strings.HasPrefix(event, "ignored:"):
		metrics.EnvelopesTotal.WithLabelValues(event).Inc()

	case event == "connecting":
		metrics.ConnectionStatus.Set(1)
	case event == "connected":
		metrics.ConnectionStatus.Set(2)
	case event == "disconnected":
		metrics.ConnectionStatus.Set(0)
	case event == "reconnect_scheduled":
		metrics.ReconnectsTotal.Inc()

	case event == "queued":
		if n, ok := intDetail(details, "queue_size"); ok {
			metrics.OutboundQueueDepth.Set(float64(n))
		}
	case event == "queue_overflow":
		kind := "unknown"
		if v, ok := details["kind"]; ok {
			kind = fmt.Sprint(v)
		}
		metrics.OutboundDroppedTotal.WithLabelValues(kind).Inc()
	case event == "flushed":
		if n, ok := intDetail(details, "sent"); ok {
			metrics.OutboundFlushedTotal.Add(float64(n))
		}
		if n, ok := intDetail(details, "remaining"); ok {
			metrics.OutboundQueueDepth.Set(float64(n))
		}

	case event == "batch_dispatched":
		if n, ok := intDetail(details, "size"); ok {
			metrics.BatchSize.Observe(float64(n))
		}
	case event == "state_applied":
		metrics.StateTransitionsTotal.Inc()
	case event == "state_stale_dropped":
		metrics.StaleBatchesTotal.Inc()
	}
}

func intDetail(details map[string]any, key string) (int, bool) {
	v, ok := details[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
