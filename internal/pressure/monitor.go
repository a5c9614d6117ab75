package pressure

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/logging"
)

// Tier is an ordered memory-pressure level.
type Tier int

const (
	TierNone Tier = iota
	TierWarn
	TierAggressive
	TierEmergency
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierWarn:
		return "warn"
	case TierAggressive:
		return "aggressive"
	case TierEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Telemetry exposes host heap usage. ok reports whether the host provides
// any telemetry at all.
type Telemetry interface {
	Usage() (used, total, limit uint64, ok bool)
}

// Collector is an optional manual-collection hook. Invoking it is always
// best-effort; the host collector remains opaque.
type Collector func()

// Capabilities are host facilities probed once at construction and cached
// for the process lifetime.
type Capabilities struct {
	Telemetry     bool
	ManualCollect bool
	IdleSchedule  bool
}

// ReclaimResult records one best-effort reclamation attempt, for diagnostics
// only. Freed is an estimate and never gates control flow.
type ReclaimResult struct {
	Performed   bool
	Attempts    int
	BeforeBytes uint64
	AfterBytes  uint64
	FreedBytes  uint64
	Duration    time.Duration
	// EfficiencyBytesPerSec is freed volume per unit time.
	EfficiencyBytesPerSec float64
}

// Config tunes tier thresholds and reclamation retries.
type Config struct {
	WarnRatio       float64
	AggressiveRatio float64
	EmergencyRatio  float64
	ReclaimAttempts int
	ReclaimDelay    time.Duration
}

// DefaultConfig returns standard pressure thresholds.
func DefaultConfig() Config {
	return Config{
		WarnRatio:       0.70,
		AggressiveRatio: 0.85,
		EmergencyRatio:  0.95,
		ReclaimAttempts: 3,
		ReclaimDelay:    250 * time.Millisecond,
	}
}

// Monitor classifies sampled heap usage into pressure tiers and issues
// best-effort reclamation nudges when a tier is newly entered. With no
// telemetry capability every operation is a no-op.
type Monitor struct {
	cfg     Config
	caps    Capabilities
	telem   Telemetry
	collect Collector

	mu            sync.Mutex
	tier          Tier
	lastReclaim   ReclaimResult
	totalAttempts int64
	totalFreed    uint64

	bus    *events.Bus
	logger *logging.Logger
}

// Option configures optional monitor facilities.
type Option func(*Monitor)

// WithTelemetry replaces the default runtime-based telemetry. Pass nil to
// model a host without heap telemetry.
func WithTelemetry(t Telemetry) Option {
	return func(m *Monitor) { m.telem = t }
}

// WithCollector replaces the default manual-collection hook. Pass nil to
// model a host without one.
func WithCollector(c Collector) Option {
	return func(m *Monitor) { m.collect = c }
}

// NewMonitor creates a pressure monitor and probes capabilities once.
func NewMonitor(cfg Config, bus *events.Bus, logger *logging.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Monitor{
		cfg:     cfg,
		telem:   defaultTelemetry{},
		collect: defaultCollect,
		bus:     bus,
		logger:  logger.Component("pressure"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.caps = Capabilities{
		Telemetry:     m.telem != nil,
		ManualCollect: m.collect != nil,
		IdleSchedule:  false, // no idle-priority scheduling primitive on this host
	}
	return m
}

// Capabilities returns the probed capability flags.
func (m *Monitor) Capabilities() Capabilities {
	return m.caps
}

// Usage returns current heap telemetry. ok is false without the telemetry
// capability.
func (m *Monitor) Usage() (used, total, limit uint64, ok bool) {
	if !m.caps.Telemetry {
		return 0, 0, 0, false
	}
	return m.telem.Usage()
}

// Ratio returns the current pressure ratio (used/limit), or 0 without
// telemetry.
func (m *Monitor) Ratio() float64 {
	used, _, limit, ok := m.Usage()
	if !ok || limit == 0 {
		return 0
	}
	return float64(used) / float64(limit)
}

// Tier returns the last classified tier.
func (m *Monitor) Tier() Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tier
}

// Classify maps a pressure ratio onto a tier.
func (m *Monitor) Classify(ratio float64) Tier {
	switch {
	case ratio >= m.cfg.EmergencyRatio:
		return TierEmergency
	case ratio >= m.cfg.AggressiveRatio:
		return TierAggressive
	case ratio >= m.cfg.WarnRatio:
		return TierWarn
	default:
		return TierNone
	}
}

// Check samples usage, reclassifies the tier, and on a newly entered higher
// tier runs a best-effort reclamation. Tier transitions emit bus events.
// Without telemetry this is a no-op returning TierNone.
func (m *Monitor) Check() Tier {
	if !m.caps.Telemetry {
		return TierNone
	}

	ratio := m.Ratio()
	next := m.Classify(ratio)

	m.mu.Lock()
	prev := m.tier
	m.tier = next
	m.mu.Unlock()

	switch {
	case next > prev:
		m.logger.Warn("pressure tier entered",
			zap.String("tier", next.String()),
			zap.Float64("ratio", ratio))
		if m.bus != nil {
			m.bus.Emit(events.PressureEntered, map[string]interface{}{
				"tier":  next.String(),
				"from":  prev.String(),
				"ratio": ratio,
			})
		}
		m.Reclaim()
	case next < prev:
		m.logger.Info("pressure tier restored",
			zap.String("tier", next.String()),
			zap.Float64("ratio", ratio))
		if m.bus != nil {
			m.bus.Emit(events.PressureRestore, map[string]interface{}{
				"tier":  next.String(),
				"from":  prev.String(),
				"ratio": ratio,
			})
		}
	}
	return next
}

// Reclaim attempts best-effort reclamation: the manual-collection hook when
// present, otherwise an allocation-churn nudge. Retries up to the configured
// attempt count. The result is diagnostic only.
func (m *Monitor) Reclaim() ReclaimResult {
	if !m.caps.Telemetry {
		return ReclaimResult{}
	}

	before, _, _, _ := m.telem.Usage()
	start := time.Now()

	var result ReclaimResult
	result.Performed = true
	result.BeforeBytes = before

	attempts := m.cfg.ReclaimAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if i > 0 && m.cfg.ReclaimDelay > 0 {
			time.Sleep(m.cfg.ReclaimDelay)
		}
		result.Attempts++

		if m.caps.ManualCollect {
			m.collect()
		} else {
			churn()
		}

		after, _, _, _ := m.telem.Usage()
		result.AfterBytes = after
		if after < before {
			break
		}
	}

	result.Duration = time.Since(start)
	if result.AfterBytes < result.BeforeBytes {
		result.FreedBytes = result.BeforeBytes - result.AfterBytes
	}
	if secs := result.Duration.Seconds(); secs > 0 {
		result.EfficiencyBytesPerSec = float64(result.FreedBytes) / secs
	}

	m.mu.Lock()
	m.lastReclaim = result
	m.totalAttempts += int64(result.Attempts)
	m.totalFreed += result.FreedBytes
	m.mu.Unlock()

	m.logger.Debug("reclamation attempted",
		zap.Int("attempts", result.Attempts),
		zap.Uint64("freed_bytes", result.FreedBytes),
		zap.Duration("duration", result.Duration))
	return result
}

// LastReclaim returns the most recent reclamation result.
func (m *Monitor) LastReclaim() ReclaimResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReclaim
}

// Totals returns cumulative reclamation attempts and estimated freed bytes
// over the monitor's lifetime.
func (m *Monitor) Totals() (attempts int64, freedBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalAttempts, m.totalFreed
}

// defaultTelemetry reads the Go runtime's own heap accounting.
type defaultTelemetry struct{}

func (defaultTelemetry) Usage() (used, total, limit uint64, ok bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, ms.HeapSys, ms.Sys, true
}

// NewLimitTelemetry wraps the runtime telemetry with an explicit limit.
func NewLimitTelemetry(limitBytes uint64) Telemetry {
	return limitTelemetry{limit: limitBytes}
}

type limitTelemetry struct {
	limit uint64
}

func (l limitTelemetry) Usage() (used, total, limit uint64, ok bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	limit = l.limit
	if limit == 0 {
		limit = ms.Sys
	}
	return ms.HeapAlloc, ms.HeapSys, limit, true
}

func defaultCollect() {
	runtime.GC()
	debug.FreeOSMemory()
}

// churn allocates and immediately discards a batch of throwaway buffers,
// which may encourage the host collector to run. Never a guarantee.
func churn() {
	const (
		batches   = 16
		batchSize = 1 << 20
	)
	for i := 0; i < batches; i++ {
		buf := make([]byte, batchSize)
		buf[0] = byte(i)
		_ = buf
	}
}
