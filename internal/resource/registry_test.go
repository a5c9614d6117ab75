package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRelease(t *testing.T) {
	r := NewRegistry(nil)

	id := r.Register(KindTimer, map[string]interface{}{"interval": "5s"})
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Count(KindTimer))

	assert.True(t, r.Release(KindTimer, id))
	assert.Equal(t, 0, r.Count(KindTimer))
}

func TestReleaseInvokesTeardownExactlyOnce(t *testing.T) {
	r := NewRegistry(nil)

	calls := 0
	r.SetTeardown(KindSubscription, func(*Tracked) { calls++ })

	id := r.Register(KindSubscription, nil)
	assert.True(t, r.Release(KindSubscription, id))
	assert.Equal(t, 1, calls)

	// Second release is idempotent: false, no teardown.
	assert.False(t, r.Release(KindSubscription, id))
	assert.Equal(t, 1, calls)
}

func TestReleaseUnknownID(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(KindTimer, nil)

	assert.False(t, r.Release(KindTimer, "no-such-id"))
	assert.Equal(t, 1, r.Count(KindTimer))
}

func TestPerResourceTeardownOverride(t *testing.T) {
	r := NewRegistry(nil)

	kindCalls, ownCalls := 0, 0
	r.SetTeardown(KindObserver, func(*Tracked) { kindCalls++ })

	withOverride := r.Register(KindObserver, nil, WithTeardown(func() { ownCalls++ }))
	plain := r.Register(KindObserver, nil)

	r.Release(KindObserver, withOverride)
	r.Release(KindObserver, plain)

	assert.Equal(t, 1, ownCalls)
	assert.Equal(t, 1, kindCalls)
}

func TestTeardownPanicRecovered(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Register(KindBuffer, nil, WithTeardown(func() { panic("revoke failed") }))

	assert.NotPanics(t, func() {
		assert.True(t, r.Release(KindBuffer, id))
	})
	assert.Equal(t, 0, r.Count(KindBuffer))
}

func TestKindNamespacesAreIndependent(t *testing.T) {
	r := NewRegistry(nil)

	timerID := r.Register(KindTimer, nil)
	r.Register(KindBuffer, nil)

	// A timer id is unknown in the buffer namespace.
	assert.False(t, r.Release(KindBuffer, timerID))
	assert.Equal(t, 1, r.Count(KindTimer))
	assert.Equal(t, 1, r.Count(KindBuffer))
}

func TestCounts(t *testing.T) {
	r := NewRegistry(nil)
	for i := 0; i < 3; i++ {
		r.Register(KindTimer, nil)
	}
	r.Register(KindSubscription, nil)

	counts := r.Counts()
	assert.Equal(t, 3, counts[KindTimer])
	assert.Equal(t, 1, counts[KindSubscription])
	assert.Equal(t, 0, counts[KindBuffer])
	assert.Equal(t, 4, r.Total())
}

func TestOldestFirstOrdering(t *testing.T) {
	r := NewRegistry(nil)

	var ids []string
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ids = append(ids, r.Register(KindTimer, nil))
	}
	// Spread creation times so ordering is unambiguous.
	byID := make(map[string]*Tracked)
	for _, tr := range r.OldestFirst(KindTimer) {
		byID[tr.ID] = tr
	}
	for i, id := range ids {
		byID[id].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}

	ordered := r.OldestFirst(KindTimer)
	require.Len(t, ordered, 5)
	for i, tr := range ordered {
		assert.Equal(t, ids[i], tr.ID)
	}
}

func TestSideTablePrunedOnRelease(t *testing.T) {
	r := NewRegistry(nil)
	id := r.Register(KindElementRef, nil)

	r.Side().Attach(KindElementRef, id, "selector", "#main")
	meta, ok := r.Side().Lookup(KindElementRef, id)
	require.True(t, ok)
	assert.Equal(t, "#main", meta["selector"])

	r.Release(KindElementRef, id)
	_, ok = r.Side().Lookup(KindElementRef, id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Side().Len())
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		parsed, ok := KindFromString(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	_, ok := KindFromString("bogus")
	assert.False(t, ok)
}
