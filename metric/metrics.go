// Package metric defines the Prometheus instrumentation for the telemetry
// relay pipeline. Metrics are registered on a caller-supplied registry so
// tests can use isolated registries and the HTTP layer can decide how to
// expose them.
package metric

import "github.com/prometheus/client_golang/prometheus"

const namespace = "relay"

// Metrics contains all pipeline-level metrics
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	DecodeFailures   *prometheus.CounterVec
	MappingSkips     prometheus.Counter

	BatchFlushes  *prometheus.CounterVec
	RowsInserted  prometheus.Counter
	BatchPending  prometheus.Gauge
	FlushDuration prometheus.Histogram

	CacheErrors       prometheus.Counter
	CommandsPublished *prometheus.CounterVec

	BrokerConnected  prometheus.Gauge
	BrokerReconnects prometheus.Counter
}

// New creates pipeline metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "messages_received_total",
				Help:      "Messages received from the broker, by topic",
			},
			[]string{"topic"},
		),
		DecodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "decode_failures_total",
				Help:      "Payloads dropped because they could not be decoded, by payload kind",
			},
			[]string{"kind"},
		),
		MappingSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "mapping_skips_total",
				Help:      "Sensor records excluded from batching for lack of required groups",
			},
		),
		BatchFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "flushes_total",
				Help:      "Batch flush attempts, by outcome",
			},
			[]string{"outcome"},
		),
		RowsInserted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "rows_inserted_total",
				Help:      "Sensor rows durably inserted",
			},
		),
		BatchPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "pending_rows",
				Help:      "Rows currently buffered awaiting flush",
			},
		),
		FlushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "batch",
				Name:      "flush_duration_seconds",
				Help:      "Durable insert round-trip duration",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CacheErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Recent-history cache operations that degraded to empty results",
			},
		),
		CommandsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "command",
				Name:      "published_total",
				Help:      "Operator commands republished to the robot, by topic",
			},
			[]string{"topic"},
		),
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "connected",
				Help:      "Broker connection status (0=disconnected, 1=connected)",
			},
		),
		BrokerReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "reconnects_total",
				Help:      "Broker reconnections observed",
			},
		),
	}

	reg.MustRegister(
		m.MessagesReceived,
		m.DecodeFailures,
		m.MappingSkips,
		m.BatchFlushes,
		m.RowsInserted,
		m.BatchPending,
		m.FlushDuration,
		m.CacheErrors,
		m.CommandsPublished,
		m.BrokerConnected,
		m.BrokerReconnects,
	)

	return m
}

// NewUnregistered creates pipeline metrics on a private registry, for
// components that require non-nil metrics but whose caller does not care
// about exposure (tests, mostly).
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
