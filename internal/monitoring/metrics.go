package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reclamation core.
type Metrics struct {
	// Registry metrics
	ResourcesLive     *prometheus.GaugeVec
	ResourcesReleased *prometheus.CounterVec

	// Cleanup metrics
	PassesTotal   *prometheus.CounterVec
	PassesDropped *prometheus.CounterVec
	PassDuration  prometheus.Histogram
	Reclaimed     *prometheus.CounterVec
	PassRollbacks prometheus.Counter

	// Pool metrics
	PoolCreated   *prometheus.CounterVec
	PoolReused    *prometheus.CounterVec
	PoolAvailable *prometheus.GaugeVec
	PoolInUse     *prometheus.GaugeVec

	// Pressure metrics
	PressureRatio    prometheus.Gauge
	PressureTier     prometheus.Gauge
	ReclaimAttempts  prometheus.Counter
	ReclaimFreedByte prometheus.Counter

	// Detector metrics
	LeakFlags *prometheus.CounterVec
	Alerts    prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates the metric collectors on the default registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		ResourcesLive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "warden_resources_live",
				Help: "Live tracked resources by kind",
			},
			[]string{"kind"},
		),
		ResourcesReleased: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_resources_released_total",
				Help: "Resources released by kind",
			},
			[]string{"kind"},
		),

		PassesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_cleanup_passes_total",
				Help: "Completed cleanup passes by tier and trigger",
			},
			[]string{"tier", "trigger"},
		),
		PassesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_cleanup_passes_dropped_total",
				Help: "Cleanup passes dropped by the guard or cooldown",
			},
			[]string{"tier", "trigger"},
		),
		PassDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "warden_cleanup_pass_duration_seconds",
				Help:    "Cleanup pass duration",
				Buckets: prometheus.DefBuckets,
			},
		),
		Reclaimed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_cleanup_reclaimed_total",
				Help: "Resources reclaimed by cleanup passes, by kind",
			},
			[]string{"kind"},
		),
		PassRollbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_cleanup_rollbacks_total",
				Help: "Cleanup passes aborted by an internal panic",
			},
		),

		PoolCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_pool_created_total",
				Help: "Pool instances created by type",
			},
			[]string{"type"},
		),
		PoolReused: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_pool_reused_total",
				Help: "Pool acquires served from the pool, by type",
			},
			[]string{"type"},
		),
		PoolAvailable: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "warden_pool_available",
				Help: "Pooled instances available by type",
			},
			[]string{"type"},
		),
		PoolInUse: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "warden_pool_in_use",
				Help: "Pooled instances in use by type",
			},
			[]string{"type"},
		),

		PressureRatio: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_pressure_ratio",
				Help: "Sampled heap usage divided by heap limit",
			},
		),
		PressureTier: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_pressure_tier",
				Help: "Current pressure tier (0=none 1=warn 2=aggressive 3=emergency)",
			},
		),
		ReclaimAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_pressure_reclaim_attempts_total",
				Help: "Best-effort reclamation attempts",
			},
		),
		ReclaimFreedByte: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_pressure_reclaim_freed_bytes_total",
				Help: "Estimated bytes freed by reclamation nudges",
			},
		),

		LeakFlags: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_leak_flags_total",
				Help: "Leak findings by flag type",
			},
			[]string{"type"},
		),
		Alerts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_alerts_emitted_total",
				Help: "Debounced alert notifications emitted",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "warden_uptime_seconds",
				Help: "Process uptime",
			},
		),
	}
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
