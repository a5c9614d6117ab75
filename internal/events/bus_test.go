package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeEmit(t *testing.T) {
	bus := NewBus(nil)

	var got map[string]interface{}
	bus.Subscribe(PassCompleted, func(_ string, payload map[string]interface{}) {
		got = payload
	})

	bus.Emit(PassCompleted, map[string]interface{}{"reclaimed": 7})
	assert.Equal(t, 7, got["reclaimed"])
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	unsubscribe := bus.Subscribe(LeakDetected, func(string, map[string]interface{}) { calls++ })

	bus.Emit(LeakDetected, nil)
	unsubscribe()
	bus.Emit(LeakDetected, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount(LeakDetected))
}

func TestWildcardReceivesEverything(t *testing.T) {
	bus := NewBus(nil)

	var names []string
	bus.Subscribe(Wildcard, func(name string, _ map[string]interface{}) {
		names = append(names, name)
	})

	bus.Emit(InitComplete, nil)
	bus.Emit(PressureEntered, nil)

	assert.Equal(t, []string{InitComplete, PressureEntered}, names)
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(AlertRaised, func(string, map[string]interface{}) { panic("bad handler") })
	delivered := false
	bus.Subscribe(AlertRaised, func(string, map[string]interface{}) { delivered = true })

	assert.NotPanics(t, func() { bus.Emit(AlertRaised, nil) })
	assert.True(t, delivered)
}
