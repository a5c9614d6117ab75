package cleanup

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/logging"
	"github.com/wardenhq/warden/internal/pool"
	"github.com/wardenhq/warden/internal/pressure"
	"github.com/wardenhq/warden/internal/resilience"
	"github.com/wardenhq/warden/internal/resource"
)

// Options is passed to external collaborators during a pass.
type Options struct {
	Tier  Tier
	Force bool
}

// Cleaner is implemented by external collaborators (cache backends, auxiliary
// pools) that can shed state on request.
type Cleaner interface {
	Name() string
	Cleanup(opts Options) (cleaned int, err error)
}

// Config bounds pass dispatch and edge-trigger evaluation.
type Config struct {
	// Cooldown is the minimum elapsed time between passes. The emergency
	// pass bypasses it.
	Cooldown time.Duration
	// MaxReclaimRatio caps the fraction of live resources one pass may
	// reclaim.
	MaxReclaimRatio float64
	// PressureRatio is the edge-trigger threshold on the pressure ratio.
	PressureRatio float64
	// ResourceCeiling is the edge-trigger threshold on the aggregate count.
	ResourceCeiling int
	// StructureCeiling is the edge-trigger threshold on the host structure
	// size gauge.
	StructureCeiling int
	// InactivityWindow is how long without activity before the inactivity
	// edge fires.
	InactivityWindow time.Duration
}

// DefaultConfig returns standard orchestrator bounds.
func DefaultConfig() Config {
	return Config{
		Cooldown:         30 * time.Second,
		MaxReclaimRatio:  0.5,
		PressureRatio:    0.85,
		ResourceCeiling:  500,
		StructureCeiling: 5000,
		InactivityWindow: 15 * time.Minute,
	}
}

type cleanerEntry struct {
	cleaner Cleaner
	breaker *resilience.Breaker
}

// Orchestrator selects a policy tier and dispatches reclamation across the
// registry, the pool, the pressure monitor, and external collaborators. At
// most one pass executes at a time; a trigger arriving during a pass is
// dropped, not queued.
type Orchestrator struct {
	cfg      Config
	registry *resource.Registry
	pool     *pool.Pool
	pressure *pressure.Monitor
	bus      *events.Bus
	logger   *logging.Logger

	running atomic.Bool
	limiter *rate.Limiter

	mu        sync.Mutex
	policies  map[Tier]Policy
	cleaners  []cleanerEntry
	hist      history
	rollbacks uint64
	lastPass  time.Time

	edgeMu        sync.Mutex
	edges         []*edge
	structureSize func() int
	visible       bool
	lastActivity  time.Time
}

// NewOrchestrator creates an orchestrator with the default policy tiers.
// pressure may be nil on hosts without telemetry.
func NewOrchestrator(cfg Config, registry *resource.Registry, p *pool.Pool, mon *pressure.Monitor, bus *events.Bus, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.MaxReclaimRatio <= 0 || cfg.MaxReclaimRatio > 1 {
		cfg.MaxReclaimRatio = DefaultConfig().MaxReclaimRatio
	}

	o := &Orchestrator{
		cfg:          cfg,
		registry:     registry,
		pool:         p,
		pressure:     mon,
		bus:          bus,
		logger:       logger.Component("cleanup"),
		policies:     DefaultPolicies(),
		limiter:      rate.NewLimiter(rate.Every(cfg.Cooldown), 1),
		visible:      true,
		lastActivity: time.Now(),
	}
	o.edges = o.defaultEdges()
	return o
}

// SetPolicy replaces one tier's policy.
func (o *Orchestrator) SetPolicy(tier Tier, p Policy) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p.Tier = tier
	o.policies[tier] = p
}

// Policy returns the active policy for a tier.
func (o *Orchestrator) Policy(tier Tier) Policy {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.policies[tier]
}

// RegisterCleaner adds an external collaborator, guarded by its own circuit
// breaker so a flapping collaborator is skipped rather than failing every
// pass.
func (o *Orchestrator) RegisterCleaner(c Cleaner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cleaners = append(o.cleaners, cleanerEntry{
		cleaner: c,
		breaker: resilience.New(c.Name(), resilience.Settings{
			FailureThreshold: 3,
			Timeout:          2 * time.Minute,
		}),
	})
}

// Run executes one pass at the given tier. It returns false when the pass
// was dropped: another pass in progress, or the cooldown not yet elapsed.
func (o *Orchestrator) Run(tier Tier, trigger Trigger, condition string) (Result, bool) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Debug("pass dropped, another in progress",
			zap.String("tier", tier.String()), zap.String("trigger", string(trigger)))
		o.emitDropped(tier, trigger, "in-progress")
		return Result{}, false
	}
	defer o.running.Store(false)

	if trigger != TriggerEmergency && !o.limiter.Allow() {
		o.logger.Debug("pass dropped by cooldown",
			zap.String("tier", tier.String()), zap.String("trigger", string(trigger)))
		o.emitDropped(tier, trigger, "cooldown")
		return Result{}, false
	}

	return o.executePass(tier, trigger, condition)
}

// RunEmergency executes the final pass at the most aggressive tier. It
// bypasses the cooldown but not the re-entrancy guard.
func (o *Orchestrator) RunEmergency() (Result, bool) {
	return o.Run(TierAggressive, TriggerEmergency, "")
}

// Running reports whether a pass is currently in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// History returns a copy of the bounded pass history.
func (o *Orchestrator) History() []Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hist.snapshot()
}

// Rollbacks returns how many passes aborted on an internal panic. No state
// is restored on abort; this is a diagnostic counter only.
func (o *Orchestrator) Rollbacks() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rollbacks
}

// LastPass returns when the last pass completed.
func (o *Orchestrator) LastPass() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastPass
}

func (o *Orchestrator) executePass(tier Tier, trigger Trigger, condition string) (result Result, ran bool) {
	o.mu.Lock()
	policy, ok := o.policies[tier]
	cleaners := make([]cleanerEntry, len(o.cleaners))
	copy(cleaners, o.cleaners)
	o.mu.Unlock()
	if !ok {
		policy = DefaultPolicies()[TierConservative]
	}

	start := time.Now()
	result = Result{
		Tier:      tier.String(),
		Trigger:   trigger,
		Condition: condition,
		StartedAt: start,
	}

	// A panic mid-pass aborts the rest of the pass but undoes nothing that
	// was already released.
	defer func() {
		if r := recover(); r != nil {
			o.mu.Lock()
			o.rollbacks++
			o.mu.Unlock()
			o.logger.Error("pass aborted", zap.Any("panic", r))
			result, ran = Result{}, false
		}
	}()

	budget := o.reclaimBudget()
	for _, kind := range resource.Kinds() {
		kr := o.reclaimKind(kind, policy, &budget)
		result.Kinds = append(result.Kinds, kr)
		result.Reclaimed += kr.Reclaimed
	}

	if policy.ForceReclaim && o.pressure != nil {
		if o.pressure.Ratio() >= policy.MemoryRatioThreshold {
			o.pressure.Reclaim()
			result.ForcedReclaim = true
		}
	}

	opts := Options{Tier: tier, Force: policy.ForceReclaim}
	for _, entry := range cleaners {
		result.Collaborators = append(result.Collaborators, o.runCleaner(entry, opts))
	}

	if o.pool != nil {
		o.pool.Trim()
	}

	result.Duration = time.Since(start)
	result.Success = true
	for _, kr := range result.Kinds {
		if kr.Error != "" {
			result.Success = false
			break
		}
	}

	o.mu.Lock()
	o.hist.append(result)
	o.lastPass = time.Now()
	o.mu.Unlock()

	o.logger.Info("pass completed",
		zap.String("tier", tier.String()),
		zap.String("trigger", string(trigger)),
		zap.Int("reclaimed", result.Reclaimed),
		zap.Duration("duration", result.Duration),
		zap.Bool("success", result.Success))

	if o.bus != nil {
		o.bus.Emit(events.PassCompleted, map[string]interface{}{
			"tier":             result.Tier,
			"trigger":          string(result.Trigger),
			"reclaimed":        result.Reclaimed,
			"duration":         result.Duration.String(),
			"duration_seconds": result.Duration.Seconds(),
			"success":          result.Success,
			"kinds":            result.Kinds,
		})
	}
	return result, true
}

func (o *Orchestrator) emitDropped(tier Tier, trigger Trigger, reason string) {
	if o.bus == nil {
		return
	}
	o.bus.Emit(events.PassDropped, map[string]interface{}{
		"tier":    tier.String(),
		"trigger": string(trigger),
		"reason":  reason,
	})
}

// reclaimBudget is the global ceiling on resources one pass may release.
func (o *Orchestrator) reclaimBudget() int {
	total := o.registry.Total()
	return int(math.Ceil(o.cfg.MaxReclaimRatio * float64(total)))
}

// reclaimKind applies one kind's age and count limits, oldest first. A
// failure inside one kind is recorded and does not abort remaining kinds.
func (o *Orchestrator) reclaimKind(kind resource.Kind, policy Policy, budget *int) (kr KindResult) {
	kr = KindResult{Kind: kind, KindName: kind.String()}

	defer func() {
		if r := recover(); r != nil {
			kr.Error = "kind reclamation panicked"
			kr.After = o.registry.Count(kind)
			o.logger.Warn("kind reclamation failed",
				zap.String("kind", kind.String()), zap.Any("panic", r))
		}
	}()

	limits := policy.Limits[kind]
	now := time.Now()
	entries := o.registry.OldestFirst(kind)
	kr.Before = len(entries)
	released := make(map[string]struct{})

	// Age limit first. Entries are oldest first, so the scan stops at the
	// first young enough entry.
	if limits.MaxAge > 0 {
		for _, t := range entries {
			if *budget <= 0 {
				break
			}
			if t.Age(now) <= limits.MaxAge {
				break
			}
			if t.Critical && !policy.ForceReclaim {
				continue
			}
			if o.registry.Release(kind, t.ID) {
				released[t.ID] = struct{}{}
				kr.Reclaimed++
				*budget--
			}
		}
	}

	// Then the count limit, again oldest first as the tie-break.
	if limits.MaxCount > 0 {
		for _, t := range entries {
			if *budget <= 0 || o.registry.Count(kind) <= limits.MaxCount {
				break
			}
			if _, done := released[t.ID]; done {
				continue
			}
			if t.Critical && !policy.ForceReclaim {
				continue
			}
			if o.registry.Release(kind, t.ID) {
				released[t.ID] = struct{}{}
				kr.Reclaimed++
				*budget--
			}
		}
	}

	kr.After = o.registry.Count(kind)
	return kr
}

func (o *Orchestrator) runCleaner(entry cleanerEntry, opts Options) CollaboratorResult {
	cr := CollaboratorResult{Name: entry.cleaner.Name()}
	err := entry.breaker.Execute(func() error {
		cleaned, err := entry.cleaner.Cleanup(opts)
		cr.Cleaned = cleaned
		return err
	})
	if err != nil {
		cr.Error = err.Error()
		o.logger.Warn("collaborator cleanup failed",
			zap.String("collaborator", cr.Name), zap.Error(err))
	}
	return cr
}
