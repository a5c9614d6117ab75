package pool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/logging"
)

// Factory allocates a fresh poolable instance.
type Factory func() interface{}

// Reset returns an instance to a clean state. It runs before every hand-out
// and on every release.
type Reset func(interface{})

// Stats describes usage of one registered type.
type Stats struct {
	Created         int64
	Reused          int64
	PeakConcurrency int
	Available       int
	InUse           int
}

// Efficiency is the fraction of acquires served from the pool, in [0,1].
func (s Stats) Efficiency() float64 {
	total := s.Created + s.Reused
	if total == 0 {
		return 0
	}
	return float64(s.Reused) / float64(total)
}

type entry struct {
	name      string
	factory   Factory
	reset     Reset
	minSize   int
	maxSize   int
	available []interface{}
	inUse     map[interface{}]struct{}
	created   int64
	reused    int64
	peak      int
}

// Pool holds per-type bounded pools of reusable instances. Instances must be
// comparable (in practice, pointers): identity is how in-use tracking works.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  *logging.Logger
}

// New creates an empty pool.
func New(logger *logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		entries: make(map[string]*entry),
		logger:  logger.Component("pool"),
	}
}

// RegisterType creates a pool for the named type and preloads minSize
// instances.
func (p *Pool) RegisterType(name string, factory Factory, reset Reset, minSize, maxSize int) error {
	if factory == nil {
		return fmt.Errorf("pool %q: factory is required", name)
	}
	if minSize < 0 || maxSize <= 0 || minSize > maxSize {
		return fmt.Errorf("pool %q: invalid bounds min=%d max=%d", name, minSize, maxSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[name]; exists {
		return fmt.Errorf("pool %q: already registered", name)
	}

	e := &entry{
		name:      name,
		factory:   factory,
		reset:     reset,
		minSize:   minSize,
		maxSize:   maxSize,
		available: make([]interface{}, 0, maxSize),
		inUse:     make(map[interface{}]struct{}),
	}
	for i := 0; i < minSize; i++ {
		e.available = append(e.available, factory())
	}
	p.entries[name] = e
	return nil
}

// Acquire returns an instance of the named type, reusing a pooled one when
// possible. When the pool is empty a new instance is allocated, even beyond
// maxSize; such overflow instances are handed out normally but discarded on
// release.
func (p *Pool) Acquire(name string) (interface{}, error) {
	p.mu.Lock()
	e, ok := p.entries[name]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool %q: not registered", name)
	}

	var inst interface{}
	if n := len(e.available); n > 0 {
		inst = e.available[n-1]
		e.available = e.available[:n-1]
		e.reused++
	} else {
		inst = e.factory()
		e.created++
	}
	e.inUse[inst] = struct{}{}
	if len(e.inUse) > e.peak {
		e.peak = len(e.inUse)
	}
	reset := e.reset
	p.mu.Unlock()

	// A failing reset still hands the instance out; the caller accepts the
	// risk of a dirty instance over an allocation failure.
	p.applyReset(name, reset, inst)
	return inst, nil
}

// Release returns an instance to the pool. Instances the pool does not
// consider in-use are rejected with a warning. The instance is retained only
// while the pool is under maxSize; otherwise it is discarded.
func (p *Pool) Release(name string, inst interface{}) bool {
	p.mu.Lock()
	e, ok := p.entries[name]
	if !ok {
		p.mu.Unlock()
		p.logger.Warn("release to unknown pool", zap.String("pool", name))
		return false
	}
	if _, using := e.inUse[inst]; !using {
		p.mu.Unlock()
		p.logger.Warn("release of instance not in use", zap.String("pool", name))
		return false
	}
	delete(e.inUse, inst)
	reset := e.reset
	p.mu.Unlock()

	// A failing reset on the way in means the instance cannot be trusted for
	// reuse; drop it instead of repooling it dirty.
	if !p.applyReset(name, reset, inst) {
		return true
	}

	p.mu.Lock()
	if len(e.available) < e.maxSize {
		e.available = append(e.available, inst)
	}
	p.mu.Unlock()
	return true
}

// Trim shrinks each pool's available list back to maxSize and tops it up to
// minSize. Intended to run on a fixed schedule.
func (p *Pool) Trim() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if len(e.available) > e.maxSize {
			e.available = e.available[:e.maxSize]
		}
		for len(e.available) < e.minSize {
			e.available = append(e.available, e.factory())
		}
	}
}

// TypeStats returns usage statistics for one registered type.
func (p *Pool) TypeStats(name string) (Stats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[name]
	if !ok {
		return Stats{}, false
	}
	return statsOf(e), true
}

// AllStats returns per-type statistics keyed by type name.
func (p *Pool) AllStats() map[string]Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Stats, len(p.entries))
	for name, e := range p.entries {
		out[name] = statsOf(e)
	}
	return out
}

// GlobalEfficiency aggregates reuse efficiency across every type.
func (p *Pool) GlobalEfficiency() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var created, reused int64
	for _, e := range p.entries {
		created += e.created
		reused += e.reused
	}
	total := created + reused
	if total == 0 {
		return 0
	}
	return float64(reused) / float64(total)
}

func statsOf(e *entry) Stats {
	return Stats{
		Created:         e.created,
		Reused:          e.reused,
		PeakConcurrency: e.peak,
		Available:       len(e.available),
		InUse:           len(e.inUse),
	}
}

// applyReset runs the user reset callback, recovering panics. Returns false
// when the reset failed.
func (p *Pool) applyReset(name string, reset Reset, inst interface{}) (ok bool) {
	if reset == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("reset callback panicked",
				zap.String("pool", name), zap.Any("panic", r))
			ok = false
		}
	}()
	reset(inst)
	return true
}
