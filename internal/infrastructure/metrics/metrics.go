package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus collectors. HTTP collectors are
// observed by the server middleware; the sync collectors by the sync adapter.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RemotePushesTotal    *prometheus.CounterVec
	SnapshotsDelivered   prometheus.Counter
	MigrationChunksTotal *prometheus.CounterVec
	ChatMessagesTotal    prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RemotePushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_pushes_total",
				Help: "Remote document store writes by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		SnapshotsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_snapshots_delivered_total",
				Help: "Task snapshots delivered to subscribers",
			},
		),
		MigrationChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_chunks_total",
				Help: "Batch migration chunks by outcome",
			},
			[]string{"outcome"},
		),
		ChatMessagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Chat messages appended",
			},
		),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RemotePushesTotal,
		m.SnapshotsDelivered,
		m.MigrationChunksTotal,
		m.ChatMessagesTotal,
	)

	return m
}
