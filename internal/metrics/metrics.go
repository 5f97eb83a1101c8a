package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Protocol metrics
var (
	// EnvelopesTotal tracks validated inbound envelopes by outcome
	// (parsed, ignored:invalid_json, ignored:unknown_kind, ...).
	EnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewbox_envelopes_total",
			Help: "Inbound envelopes by validation outcome",
		},
		[]string{"outcome"},
	)

	// BatchSize tracks how many commands each batch window collected.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "viewbox_batch_size",
			Help:    "Commands per dispatched batch group",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	// StateTransitionsTotal tracks accepted reducer transitions.
	StateTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewbox_state_transitions_total",
			Help: "Accepted broadcast state transitions",
		},
	)

	// StaleBatchesTotal tracks batch dispatches rejected entirely by the
	// timestamp ordering rule.
	StaleBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewbox_stale_batches_total",
			Help: "Batch dispatches that produced no transition (stale timestamps)",
		},
	)
)

// Connection metrics
var (
	// ConnectionStatus reports the current connection sub-state
	// (0=disconnected, 1=connecting, 2=connected).
	ConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewbox_connection_status",
			Help: "Current connection status (0=disconnected, 1=connecting, 2=connected)",
		},
	)

	// ReconnectsTotal counts scheduled reconnect attempts.
	ReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewbox_reconnects_total",
			Help: "Total reconnect attempts scheduled",
		},
	)
)

// Outbound queue metrics
var (
	// OutboundQueueDepth reports the current number of queued envelopes.
	OutboundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewbox_outbound_queue_depth",
			Help: "Envelopes currently waiting in the outbound queue",
		},
	)

	// OutboundDroppedTotal counts envelopes evicted by the overflow policy.
	OutboundDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewbox_outbound_dropped_total",
			Help: "Envelopes evicted from the outbound queue by kind",
		},
		[]string{"kind"},
	)

	// OutboundFlushedTotal counts envelopes successfully flushed on reconnect.
	OutboundFlushedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewbox_outbound_flushed_total",
			Help: "Envelopes flushed from the outbound queue after reconnect",
		},
	)
)
