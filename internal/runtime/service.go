package runtime

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/alert"
	"github.com/wardenhq/warden/internal/cleanup"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/leak"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/monitoring"
	"github.com/wardenhq/warden/internal/pool"
	"github.com/wardenhq/warden/internal/pressure"
	"github.com/wardenhq/warden/internal/resource"
	"github.com/wardenhq/warden/internal/sched"
)

// Service is the assembled reclamation runtime. It is an explicitly
// constructed instance passed by reference to collaborators; there is no
// package-level singleton.
type Service struct {
	cfg    *config.Config
	logger *logging.Logger

	Bus          *events.Bus
	Registry     *resource.Registry
	Pool         *pool.Pool
	Pressure     *pressure.Monitor
	Alerts       *alert.Tracker
	Detector     *leak.Detector
	Orchestrator *cleanup.Orchestrator
	Metrics      *monitoring.Metrics

	scheduler *sched.Scheduler
	startedAt time.Time

	mu          sync.Mutex
	initialized bool
	paused      bool

	// Last-seen values for cumulative sources fed into counters on each tick.
	prevPoolCreated     map[string]int64
	prevPoolReused      map[string]int64
	prevRollbacks       uint64
	prevReclaimAttempts int64
	prevReclaimFreed    uint64
}

// New assembles the runtime from configuration. metrics may be nil to run
// without Prometheus collectors (tests do this; promauto registration is
// process-global).
func New(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	bus := events.NewBus(logger)
	registry := resource.NewRegistry(logger)
	p := pool.New(logger)

	pressureCfg := pressure.Config{
		WarnRatio:       cfg.Pressure.WarnRatio,
		AggressiveRatio: cfg.Pressure.AggressiveRatio,
		EmergencyRatio:  cfg.Pressure.EmergencyRatio,
		ReclaimAttempts: cfg.Pressure.ReclaimAttempts,
		ReclaimDelay:    cfg.Pressure.ReclaimDelay,
	}
	var popts []pressure.Option
	if cfg.Pressure.LimitBytes > 0 {
		popts = append(popts, pressure.WithTelemetry(pressure.NewLimitTelemetry(cfg.Pressure.LimitBytes)))
	}
	mon := pressure.NewMonitor(pressureCfg, bus, logger, popts...)

	alerts := alert.NewTracker(alert.DefaultOptions(), bus, logger)

	leakCfg := leak.DefaultConfig()
	leakCfg.WindowSize = cfg.Sampling.WindowSize
	leakCfg.ResourceGrowthLimit = cfg.Sampling.ResourceGrowth
	leakCfg.MemoryGrowthLimit = cfg.Sampling.MemoryGrowth
	detector := leak.NewDetector(leakCfg, registry, mon, alerts, bus, logger)

	cleanupCfg := cleanup.Config{
		Cooldown:         cfg.Cleanup.Cooldown,
		MaxReclaimRatio:  cfg.Cleanup.MaxReclaimRatio,
		PressureRatio:    cfg.Pressure.AggressiveRatio,
		ResourceCeiling:  cfg.Cleanup.ResourceCeiling,
		StructureCeiling: cfg.Cleanup.StructureCeiling,
		InactivityWindow: cfg.Cleanup.InactivityWindow,
	}
	orch := cleanup.NewOrchestrator(cleanupCfg, registry, p, mon, bus, logger)

	return &Service{
		cfg:          cfg,
		logger:       logger.Component("runtime"),
		Bus:          bus,
		Registry:     registry,
		Pool:         p,
		Pressure:     mon,
		Alerts:       alerts,
		Detector:     detector,
		Orchestrator: orch,
		Metrics:      metrics,
		scheduler:    sched.New(logger),
		startedAt:    time.Now(),

		prevPoolCreated: make(map[string]int64),
		prevPoolReused:  make(map[string]int64),
	}
}

// Init probes host capabilities, establishes all monitoring and cleanup
// schedules, and emits the initialization-complete notification.
func (s *Service) Init() error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return fmt.Errorf("runtime already initialized")
	}
	s.initialized = true
	s.mu.Unlock()

	if s.Metrics != nil {
		s.wireMetrics()
	}

	autoTier, ok := cleanup.TierFromString(s.cfg.Cleanup.AutoTier)
	if !ok {
		autoTier = cleanup.TierConservative
	}

	schedules := []struct {
		name     string
		interval time.Duration
		fn       func()
	}{
		{"sample", s.cfg.Sampling.Interval, s.tick},
		{"pool-trim", s.cfg.Pool.TrimInterval, s.Pool.Trim},
		{"cleanup-auto", s.cfg.Cleanup.AutoInterval, func() {
			s.Orchestrator.Run(autoTier, cleanup.TriggerPeriodic, "")
		}},
		{"cleanup-light", s.cfg.Cleanup.LightInterval, func() {
			s.Orchestrator.Run(cleanup.TierConservative, cleanup.TriggerScheduled, "light")
		}},
		{"cleanup-medium", s.cfg.Cleanup.MediumInterval, func() {
			s.Orchestrator.Run(cleanup.TierModerate, cleanup.TriggerScheduled, "medium")
		}},
		{"cleanup-heavy", s.cfg.Cleanup.HeavyInterval, func() {
			s.Orchestrator.Run(cleanup.TierAggressive, cleanup.TriggerScheduled, "heavy")
		}},
	}
	for _, sc := range schedules {
		if _, err := s.scheduler.Every(sc.name, sc.interval, sc.fn); err != nil {
			return fmt.Errorf("init schedule %q: %w", sc.name, err)
		}
	}

	caps := s.Pressure.Capabilities()
	s.logger.Info("runtime initialized",
		zap.Bool("telemetry", caps.Telemetry),
		zap.Bool("manual_collect", caps.ManualCollect),
		zap.Bool("idle_schedule", caps.IdleSchedule))

	s.Bus.Emit(events.InitComplete, map[string]interface{}{
		"telemetry":      caps.Telemetry,
		"manual_collect": caps.ManualCollect,
	})
	return nil
}

// tick is the sampling cycle: one leak-detector sample and analysis, a
// pressure check, and one evaluation of every edge trigger.
func (s *Service) tick() {
	report := s.Detector.Tick()
	s.Pressure.Check()
	s.Orchestrator.EvaluateEdges()

	if s.Metrics == nil {
		return
	}
	s.Metrics.UpdateUptime()
	for kind, count := range s.Registry.Counts() {
		s.Metrics.ResourcesLive.WithLabelValues(kind.String()).Set(float64(count))
	}

	// Counter deltas below are guarded against overlapping ticks.
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, st := range s.Pool.AllStats() {
		s.Metrics.PoolAvailable.WithLabelValues(name).Set(float64(st.Available))
		s.Metrics.PoolInUse.WithLabelValues(name).Set(float64(st.InUse))
		if d := st.Created - s.prevPoolCreated[name]; d > 0 {
			s.Metrics.PoolCreated.WithLabelValues(name).Add(float64(d))
		}
		if d := st.Reused - s.prevPoolReused[name]; d > 0 {
			s.Metrics.PoolReused.WithLabelValues(name).Add(float64(d))
		}
		s.prevPoolCreated[name] = st.Created
		s.prevPoolReused[name] = st.Reused
	}
	s.Metrics.PressureRatio.Set(s.Pressure.Ratio())
	s.Metrics.PressureTier.Set(float64(s.Pressure.Tier()))

	if rb := s.Orchestrator.Rollbacks(); rb > s.prevRollbacks {
		s.Metrics.PassRollbacks.Add(float64(rb - s.prevRollbacks))
		s.prevRollbacks = rb
	}
	attempts, freed := s.Pressure.Totals()
	if attempts > s.prevReclaimAttempts {
		s.Metrics.ReclaimAttempts.Add(float64(attempts - s.prevReclaimAttempts))
		s.prevReclaimAttempts = attempts
	}
	if freed > s.prevReclaimFreed {
		s.Metrics.ReclaimFreedByte.Add(float64(freed - s.prevReclaimFreed))
		s.prevReclaimFreed = freed
	}

	for _, f := range report.Flags {
		s.Metrics.LeakFlags.WithLabelValues(f.Type.String()).Inc()
	}
}

// wireMetrics feeds pass and alert counters from bus notifications.
func (s *Service) wireMetrics() {
	s.Bus.Subscribe(events.PassCompleted, func(_ string, payload map[string]interface{}) {
		tier, _ := payload["tier"].(string)
		trigger, _ := payload["trigger"].(string)
		s.Metrics.PassesTotal.WithLabelValues(tier, trigger).Inc()
		if secs, ok := payload["duration_seconds"].(float64); ok {
			s.Metrics.PassDuration.Observe(secs)
		}
		if kinds, ok := payload["kinds"].([]cleanup.KindResult); ok {
			for _, kr := range kinds {
				if kr.Reclaimed > 0 {
					s.Metrics.Reclaimed.WithLabelValues(kr.KindName).Add(float64(kr.Reclaimed))
					s.Metrics.ResourcesReleased.WithLabelValues(kr.KindName).Add(float64(kr.Reclaimed))
				}
			}
		}
	})
	s.Bus.Subscribe(events.PassDropped, func(_ string, payload map[string]interface{}) {
		tier, _ := payload["tier"].(string)
		trigger, _ := payload["trigger"].(string)
		s.Metrics.PassesDropped.WithLabelValues(tier, trigger).Inc()
	})
	s.Bus.Subscribe(events.AlertRaised, func(string, map[string]interface{}) {
		s.Metrics.Alerts.Inc()
	})
}

// Pause cancels all future scheduled callbacks. A pass already running
// finishes normally.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	s.scheduler.Pause()
	s.logger.Info("runtime paused")
}

// Resume re-establishes all schedules from scratch.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	s.scheduler.Resume()
	s.logger.Info("runtime resumed")
}

// Shutdown runs the final emergency pass and stops all schedules.
func (s *Service) Shutdown() {
	result, ran := s.Orchestrator.RunEmergency()
	if ran {
		s.logger.Info("final pass completed",
			zap.Int("reclaimed", result.Reclaimed),
			zap.Duration("duration", result.Duration))
	}
	s.scheduler.Shutdown()
	s.logger.Info("runtime stopped")
}

// Stats returns a point-in-time snapshot for the HTTP API.
func (s *Service) Stats() map[string]interface{} {
	counts := make(map[string]int)
	for kind, c := range s.Registry.Counts() {
		counts[kind.String()] = c
	}

	poolStats := make(map[string]interface{})
	for name, st := range s.Pool.AllStats() {
		poolStats[name] = map[string]interface{}{
			"created":          st.Created,
			"reused":           st.Reused,
			"available":        st.Available,
			"in_use":           st.InUse,
			"peak_concurrency": st.PeakConcurrency,
			"efficiency":       st.Efficiency(),
		}
	}

	return map[string]interface{}{
		"uptime_seconds":  time.Since(s.startedAt).Seconds(),
		"resources":       counts,
		"resources_total": s.Registry.Total(),
		"pools":           poolStats,
		"pool_efficiency": s.Pool.GlobalEfficiency(),
		"pressure": map[string]interface{}{
			"ratio": s.Pressure.Ratio(),
			"tier":  s.Pressure.Tier().String(),
		},
		"cleanup": map[string]interface{}{
			"running":   s.Orchestrator.Running(),
			"last_pass": s.Orchestrator.LastPass(),
			"rollbacks": s.Orchestrator.Rollbacks(),
			"history":   len(s.Orchestrator.History()),
		},
		"alerts": s.Alerts.Snapshot(),
	}
}
