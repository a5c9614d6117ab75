package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/logging"
)

// Well-known event names emitted by the core.
const (
	InitComplete    = "initialization-complete"
	PassCompleted   = "pass-completed"
	PassDropped     = "pass-dropped"
	LeakDetected    = "leak-detected"
	PressureEntered = "pressure-tier-entered"
	PressureRestore = "pressure-tier-restored"
	AlertRaised     = "alert"
)

// Wildcard subscribes a handler to every event.
const Wildcard = "*"

// Handler receives an event name and its payload.
type Handler func(name string, payload map[string]interface{})

// Bus is an in-process publish/subscribe notification bus. Delivery is
// best-effort: handler panics are recovered and delivery failures are
// never propagated to the emitter.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
	logger *logging.Logger
}

// NewBus creates an event bus.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		subs:   make(map[string]map[int]Handler),
		logger: logger.Component("events"),
	}
}

// Subscribe registers a handler for the named event (or Wildcard for all
// events) and returns an unsubscribe function.
func (b *Bus) Subscribe(name string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.subs[name] == nil {
		b.subs[name] = make(map[int]Handler)
	}
	b.subs[name][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[name], id)
	}
}

// Emit delivers the event to all matching subscribers synchronously.
func (b *Bus) Emit(name string, payload map[string]interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[name])+len(b.subs[Wildcard]))
	for _, fn := range b.subs[name] {
		handlers = append(handlers, fn)
	}
	for _, fn := range b.subs[Wildcard] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		b.safeCall(name, payload, fn)
	}
}

// SubscriberCount returns the number of handlers registered for a name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

func (b *Bus) safeCall(name string, payload map[string]interface{}, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event handler panicked",
				zap.String("event", name), zap.Any("panic", r))
		}
	}()
	fn(name, payload)
}
