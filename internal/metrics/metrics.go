package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GrantWise/factory-board-sub001/internal/constants"
)

// MetricsRegistry holds all Prometheus metrics for the ERP sync service.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Sync Metrics
	SyncOutcomesTotal           *prometheus.CounterVec
	FullSyncRequiredTotal       *prometheus.CounterVec
	ConnectionsNeedingAttention prometheus.Gauge
	ConnectionsByHealth         *prometheus.GaugeVec

	// Order Link Metrics
	ConflictEventsTotal *prometheus.CounterVec

	// Import Metrics
	ImportBatchesTotal    *prometheus.CounterVec
	ImportRecordsTotal    *prometheus.CounterVec
	ImportLogsPurgedTotal prometheus.Counter

	// Job Metrics
	JobDuration *prometheus.HistogramVec
}

// NewMetricsRegistry registers every metric with reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "erpsync_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "erpsync_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed, by method",
			},
			[]string{"method"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Sync Metrics
		SyncOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_sync_outcomes_total",
				Help: "Sync attempts recorded, by outcome (success or failure)",
			},
			[]string{"outcome"},
		),
		FullSyncRequiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_full_sync_required_total",
				Help: "Times a connection was switched to full resync, by trigger",
			},
			[]string{"trigger"},
		),
		ConnectionsNeedingAttention: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "erpsync_connections_needing_attention",
				Help: "Connections found by the last monitoring sweep",
			},
		),
		ConnectionsByHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "erpsync_connections_by_health",
				Help: "Connections needing attention, by health label",
			},
			[]string{"health"},
		),

		// Order Link Metrics
		ConflictEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_conflict_events_total",
				Help: "Order link conflicts marked and resolved",
			},
			[]string{"event"},
		),

		// Import Metrics
		ImportBatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_import_batches_total",
				Help: "Import batches by lifecycle status",
			},
			[]string{"status"},
		),
		ImportRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "erpsync_import_records_total",
				Help: "Import detail rows recorded, by action",
			},
			[]string{"action"},
		),
		ImportLogsPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "erpsync_import_logs_purged_total",
				Help: "Import batch headers removed by retention cleanup",
			},
		),

		// Job Metrics
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "erpsync_job_duration_seconds",
				Help:    "Monitoring job execution time in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"job_name"},
		),
	}
}

func (m *MetricsRegistry) CacheHit(pattern string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(pattern).Inc()
}

func (m *MetricsRegistry) CacheMiss(pattern string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(pattern).Inc()
}

func (m *MetricsRegistry) SyncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.SyncOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsRegistry) FullSyncRequired(trigger string) {
	if m == nil {
		return
	}
	m.FullSyncRequiredTotal.WithLabelValues(trigger).Inc()
}

func (m *MetricsRegistry) ConflictEvent(event string) {
	if m == nil {
		return
	}
	m.ConflictEventsTotal.WithLabelValues(event).Inc()
}

func (m *MetricsRegistry) ImportBatch(status constants.ImportStatus) {
	if m == nil {
		return
	}
	m.ImportBatchesTotal.WithLabelValues(string(status)).Inc()
}

func (m *MetricsRegistry) ImportRecord(action constants.DetailAction) {
	if m == nil {
		return
	}
	m.ImportRecordsTotal.WithLabelValues(string(action)).Inc()
}

func (m *MetricsRegistry) ImportLogsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ImportLogsPurgedTotal.Add(float64(n))
}

// AttentionSweep publishes the result of a monitoring sweep. Every health
// label is reset so labels absent from the sweep drop to zero.
func (m *MetricsRegistry) AttentionSweep(total int, byHealth map[constants.SyncHealth]int) {
	if m == nil {
		return
	}
	m.ConnectionsNeedingAttention.Set(float64(total))
	for _, h := range []constants.SyncHealth{
		constants.SyncHealthUnknown,
		constants.SyncHealthHealthy,
		constants.SyncHealthWarning,
		constants.SyncHealthCritical,
	} {
		m.ConnectionsByHealth.WithLabelValues(string(h)).Set(float64(byHealth[h]))
	}
}

func (m *MetricsRegistry) ObserveJob(jobName string, seconds float64) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobName).Observe(seconds)
}
