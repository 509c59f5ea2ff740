package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSynced  = "synced"
	OutcomeError   = "error"
	OutcomeNew     = "new"
	OutcomeSkipped = "skipped"
	OutcomeInvalid = "invalid"
)

// SyncMetrics captures order pipeline health: run outcomes, per-order results
// and upstream latency.
type SyncMetrics struct {
	runs             *prometheus.CounterVec
	runDuration      prometheus.Observer
	orders           *prometheus.CounterVec
	ingested         *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	lockContended    prometheus.Counter
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

// NewSyncMetricsForTest registers a fresh set of collectors on registerer.
func NewSyncMetricsForTest(registerer prometheus.Registerer) *SyncMetrics {
	return newSyncMetrics(registerer, Config{ServiceName: "ordersync", Environment: "test"})
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := constLabels(cfg)

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ordersync_sync_runs_total",
		Help:        "Sync runs by derived log status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "ordersync_sync_run_duration_seconds",
		Help:        "Wall time of one pending-order sync run.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ordersync_sync_orders_total",
		Help:        "Orders pushed to the POS by aggregator and outcome.",
		ConstLabels: constLabels,
	}, []string{"aggregator", "outcome"})
	ingested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "ordersync_ingest_orders_total",
		Help:        "Raw aggregator orders seen during ingestion by outcome.",
		ConstLabels: constLabels,
	}, []string{"aggregator", "outcome"})
	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ordersync_upstream_request_duration_seconds",
		Help:        "Latency of calls to aggregator and POS APIs.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"provider", "operation"})
	lockContended := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "ordersync_sync_lock_contended_total",
		Help:        "Sync runs rejected because the tenant lock was held.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(runs, runDuration, orders, ingested, upstreamDuration, lockContended)

	return &SyncMetrics{
		runs:             runs,
		runDuration:      runDuration,
		orders:           orders,
		ingested:         ingested,
		upstreamDuration: upstreamDuration,
		lockContended:    lockContended,
	}
}

func constLabels(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ordersync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}

// ObserveRun records one completed sync run.
func (m *SyncMetrics) ObserveRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// IncOrder records the outcome of one order pushed to the POS.
func (m *SyncMetrics) IncOrder(aggregator, outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(aggregator, outcome).Inc()
}

// AddIngested records raw orders seen during ingestion.
func (m *SyncMetrics) AddIngested(aggregator, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingested.WithLabelValues(aggregator, outcome).Add(float64(n))
}

// ObserveUpstream records the latency of one upstream call.
func (m *SyncMetrics) ObserveUpstream(provider, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// IncLockContended counts a sync rejected by the tenant lock.
func (m *SyncMetrics) IncLockContended() {
	if m == nil {
		return
	}
	m.lockContended.Inc()
}
