package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wardenhq/warden/internal/events"
)

func TestDebounceSuppressesEarlyOccurrences(t *testing.T) {
	tr := NewTracker(Options{MinOccurrences: 3, RepeatEvery: 5}, nil, nil)

	assert.False(t, tr.Observe("leak:growth", SeverityWarning, nil))
	assert.False(t, tr.Observe("leak:growth", SeverityWarning, nil))
	// Third observation crosses the debounce threshold.
	assert.True(t, tr.Observe("leak:growth", SeverityWarning, nil))
}

func TestDebounceRepeatCadence(t *testing.T) {
	tr := NewTracker(Options{MinOccurrences: 2, RepeatEvery: 3}, nil, nil)

	var emitted []int
	for i := 1; i <= 12; i++ {
		if tr.Observe("cond", SeverityWarning, nil) {
			emitted = append(emitted, i)
		}
	}
	// First at 2, then every 3rd observation after that.
	assert.Equal(t, []int{2, 5, 8, 11}, emitted)
}

func TestCountersPersistUntilReset(t *testing.T) {
	tr := NewTracker(Options{MinOccurrences: 2, RepeatEvery: 10}, nil, nil)

	tr.Observe("a", SeverityWarning, nil)
	tr.Observe("a", SeverityCritical, nil)

	snap := tr.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Occurrences)
	// Severity sticks at the highest observed level.
	assert.Equal(t, SeverityCritical, snap[0].Severity)
	assert.False(t, snap[0].LastRaisedAt.IsZero())

	tr.Reset("a")
	assert.Empty(t, tr.Snapshot())

	// A reset counter starts the debounce over.
	assert.False(t, tr.Observe("a", SeverityWarning, nil))
}

func TestEmissionReachesBus(t *testing.T) {
	bus := events.NewBus(nil)
	tr := NewTracker(Options{MinOccurrences: 1, RepeatEvery: 1}, bus, nil)

	var got map[string]interface{}
	bus.Subscribe(events.AlertRaised, func(_ string, payload map[string]interface{}) {
		got = payload
	})

	tr.Observe("leak:old_resource:timer", SeverityWarning, map[string]interface{}{
		"detail": "resource abc alive 40m",
	})

	assert.NotNil(t, got)
	assert.Equal(t, "leak:old_resource:timer", got["alert"])
	assert.Equal(t, "warning", got["severity"])
	assert.Equal(t, "resource abc alive 40m", got["detail"])
}

func TestResetAll(t *testing.T) {
	tr := NewTracker(DefaultOptions(), nil, nil)
	tr.Observe("a", SeverityInfo, nil)
	tr.Observe("b", SeverityInfo, nil)

	tr.ResetAll()
	assert.Empty(t, tr.Snapshot())
}
