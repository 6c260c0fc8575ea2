// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voiceapp"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Customer metrics
	CustomersCreated prometheus.Counter
	CustomersDeleted prometheus.Counter
	NearbyQueries    prometheus.Counter

	// Recording metrics
	RecordingsSaved    prometheus.Counter
	RecordingsDeleted  prometheus.Counter
	RecordingsStale    prometheus.Counter
	RecordingDuration  prometheus.Histogram
	RecordingFileBytes prometheus.Histogram

	// Session metrics
	SessionsActive prometheus.Gauge
	SessionErrors  *prometheus.CounterVec

	// Store metrics
	StoreMutations       *prometheus.CounterVec
	StoreMutationLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CustomersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customers_created_total",
			Help:      "Total number of customers created",
		}),
		CustomersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customers_deleted_total",
			Help:      "Total number of customers deleted",
		}),
		NearbyQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nearby_queries_total",
			Help:      "Total number of proximity lookups",
		}),

		RecordingsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_saved_total",
			Help:      "Total number of recordings persisted",
		}),
		RecordingsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_deleted_total",
			Help:      "Total number of recordings removed from the store",
		}),
		RecordingsStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_stale_removed_total",
			Help:      "Total number of recordings dropped because their audio file is gone",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_duration_seconds",
			Help:      "Duration of saved recordings in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		RecordingFileBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_file_bytes",
			Help:      "Size of saved audio files in bytes",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 8),
		}),

		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of recorder sessions currently recording or paused",
		}),
		SessionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Total number of failed session transitions",
		}, []string{"op"}),

		StoreMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Total number of read-modify-write cycles per collection",
		}, []string{"key", "result"}),
		StoreMutationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_mutation_latency_seconds",
			Help:      "Latency of read-modify-write cycles in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"key"}),
	}
}

// RecordCustomerCreated records a new customer.
func (m *Metrics) RecordCustomerCreated() {
	m.CustomersCreated.Inc()
}

// RecordCustomerDeleted records a removed customer.
func (m *Metrics) RecordCustomerDeleted() {
	m.CustomersDeleted.Inc()
}

// RecordNearbyQuery records a proximity lookup.
func (m *Metrics) RecordNearbyQuery() {
	m.NearbyQueries.Inc()
}

// RecordRecordingSaved records a persisted recording.
func (m *Metrics) RecordRecordingSaved(durationSeconds float64, fileBytes int64) {
	m.RecordingsSaved.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	if fileBytes > 0 {
		m.RecordingFileBytes.Observe(float64(fileBytes))
	}
}

// RecordRecordingsDeleted records n removed recordings.
func (m *Metrics) RecordRecordingsDeleted(n int) {
	m.RecordingsDeleted.Add(float64(n))
}

// RecordStaleRemoved records n recordings dropped by cleanup.
func (m *Metrics) RecordStaleRemoved(n int) {
	m.RecordingsStale.Add(float64(n))
}

// RecordSessionStart records a session entering the recording state.
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session leaving the active states.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordSessionError records a failed session transition.
func (m *Metrics) RecordSessionError(op string) {
	m.SessionErrors.WithLabelValues(op).Inc()
}

// RecordStoreMutation records one read-modify-write cycle on key.
func (m *Metrics) RecordStoreMutation(key string, err error, latencySeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreMutations.WithLabelValues(key, result).Inc()
	m.StoreMutationLatency.WithLabelValues(key).Observe(latencySeconds)
}
