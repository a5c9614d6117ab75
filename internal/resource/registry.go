package resource

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/logging"
)

// Tracked is a live resource handle owned by the Registry from registration
// until release.
type Tracked struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Metadata  map[string]interface{}
	Critical  bool

	teardown func()
}

// Age returns how long the resource has been alive.
func (t *Tracked) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// Option configures a resource at registration time.
type Option func(*Tracked)

// WithTeardown overrides the kind-level teardown for a single resource.
func WithTeardown(fn func()) Option {
	return func(t *Tracked) { t.teardown = fn }
}

// AsCritical marks the resource as critical. Critical resources are skipped
// by policy passes unless the active policy forces reclamation.
func AsCritical() Option {
	return func(t *Tracked) { t.Critical = true }
}

// Registry is typed, keyed storage of live resource handles. Each kind has
// its own id namespace and its own teardown behavior.
type Registry struct {
	mu        sync.RWMutex
	entries   map[Kind]map[string]*Tracked
	teardowns map[Kind]func(*Tracked)
	side      *SideTable
	logger    *logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries := make(map[Kind]map[string]*Tracked, len(Kinds()))
	for _, k := range Kinds() {
		entries[k] = make(map[string]*Tracked)
	}
	return &Registry{
		entries:   entries,
		teardowns: make(map[Kind]func(*Tracked)),
		side:      NewSideTable(),
		logger:    logger.Component("registry"),
	}
}

// SetTeardown installs the default teardown invoked when a resource of the
// given kind is released (cancel timer, detach subscription, and so on).
func (r *Registry) SetTeardown(kind Kind, fn func(*Tracked)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardowns[kind] = fn
}

// Register stores a new resource and returns its id.
func (r *Registry) Register(kind Kind, metadata map[string]interface{}, opts ...Option) string {
	t := &Tracked{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}
	for _, opt := range opts {
		opt(t)
	}

	r.mu.Lock()
	r.entries[kind][t.ID] = t
	r.mu.Unlock()

	r.logger.Debug("resource registered",
		zap.String("kind", kind.String()), zap.String("id", t.ID))
	return t.ID
}

// Release removes the resource and runs its teardown exactly once. Releasing
// an unknown id is expected under concurrent triggers; it returns false and
// logs a warning, never an error.
func (r *Registry) Release(kind Kind, id string) bool {
	r.mu.Lock()
	t, ok := r.entries[kind][id]
	if ok {
		delete(r.entries[kind], id)
	}
	teardown := r.teardowns[kind]
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("release of unknown resource",
			zap.String("kind", kind.String()), zap.String("id", id))
		return false
	}

	// Side-table entries are pruned on the same path that drops ownership.
	r.side.prune(kind, id)

	r.runTeardown(t, teardown)
	return true
}

// Count returns the number of live resources of one kind.
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[kind])
}

// Counts returns live resource counts for every kind.
func (r *Registry) Counts() map[Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Kind]int, len(r.entries))
	for k, m := range r.entries {
		counts[k] = len(m)
	}
	return counts
}

// Total returns the aggregate live resource count.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, m := range r.entries {
		total += len(m)
	}
	return total
}

// OldestFirst returns the live resources of a kind sorted by creation time,
// oldest first. The returned entries are shared handles; callers must not
// mutate them.
func (r *Registry) OldestFirst(kind Kind) []*Tracked {
	r.mu.RLock()
	out := make([]*Tracked, 0, len(r.entries[kind]))
	for _, t := range r.entries[kind] {
		out = append(out, t)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Side returns the auxiliary metadata table associated with this registry.
func (r *Registry) Side() *SideTable {
	return r.side
}

func (r *Registry) runTeardown(t *Tracked, kindTeardown func(*Tracked)) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("teardown panicked",
				zap.String("kind", t.Kind.String()),
				zap.String("id", t.ID),
				zap.Any("panic", rec))
		}
	}()

	switch {
	case t.teardown != nil:
		t.teardown()
	case kindTeardown != nil:
		kindTeardown(t)
	}
}
