package alert

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/logging"
)

// Severity ranks an alert.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Alert is a debounced counter for one condition. Occurrences accumulate
// across ticks until explicitly reset.
type Alert struct {
	Kind         string
	Severity     Severity
	Occurrences  int
	LastRaisedAt time.Time
}

// Options tunes debouncing.
type Options struct {
	// MinOccurrences is how many observations a condition needs before the
	// first notification is emitted.
	MinOccurrences int
	// RepeatEvery re-emits after this many further observations while the
	// condition keeps firing.
	RepeatEvery int
}

// DefaultOptions returns debounce settings that suppress transient spikes.
func DefaultOptions() Options {
	return Options{MinOccurrences: 3, RepeatEvery: 10}
}

// Tracker turns repeated threshold crossings into emitted notifications.
// Emission is best-effort; a failed or ignored notification is dropped.
type Tracker struct {
	mu     sync.Mutex
	alerts map[string]*Alert
	opts   Options
	bus    *events.Bus
	logger *logging.Logger
}

// NewTracker creates an alert tracker. bus may be nil, in which case alerts
// are only logged.
func NewTracker(opts Options, bus *events.Bus, logger *logging.Logger) *Tracker {
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = 1
	}
	if opts.RepeatEvery <= 0 {
		opts.RepeatEvery = DefaultOptions().RepeatEvery
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		alerts: make(map[string]*Alert),
		opts:   opts,
		bus:    bus,
		logger: logger.Component("alert"),
	}
}

// Observe records one occurrence of a condition and returns true when a
// notification was emitted for it.
func (t *Tracker) Observe(kind string, severity Severity, detail map[string]interface{}) bool {
	t.mu.Lock()
	a, ok := t.alerts[kind]
	if !ok {
		a = &Alert{Kind: kind, Severity: severity}
		t.alerts[kind] = a
	}
	if severity > a.Severity {
		a.Severity = severity
	}
	a.Occurrences++

	emit := false
	if a.Occurrences == t.opts.MinOccurrences {
		emit = true
	} else if a.Occurrences > t.opts.MinOccurrences {
		emit = (a.Occurrences-t.opts.MinOccurrences)%t.opts.RepeatEvery == 0
	}
	if emit {
		a.LastRaisedAt = time.Now()
	}
	occurrences := a.Occurrences
	t.mu.Unlock()

	if !emit {
		return false
	}

	t.logger.Warn("alert raised",
		zap.String("alert", kind),
		zap.String("severity", severity.String()),
		zap.Int("occurrences", occurrences))

	if t.bus != nil {
		payload := map[string]interface{}{
			"alert":       kind,
			"severity":    severity.String(),
			"occurrences": occurrences,
		}
		for k, v := range detail {
			payload[k] = v
		}
		t.bus.Emit(events.AlertRaised, payload)
	}
	return true
}

// Reset clears the counter for one condition.
func (t *Tracker) Reset(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.alerts, kind)
}

// ResetAll clears every counter.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alerts = make(map[string]*Alert)
}

// Snapshot returns a copy of all live alert counters.
func (t *Tracker) Snapshot() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Alert, 0, len(t.alerts))
	for _, a := range t.alerts {
		out = append(out, *a)
	}
	return out
}
