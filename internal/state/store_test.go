package state

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateGetDelete(t *testing.T) {
	st := NewStore(Deps{Assistant: &fakeAssistant{}}, time.Hour)

	s := st.Create()
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())

	assert.True(t, st.Delete(s.ID))
	assert.False(t, st.Delete(s.ID))
	_, ok = st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	st := NewStore(Deps{Assistant: &fakeAssistant{}}, time.Hour)
	a, b := st.Create(), st.Create()

	a.GenerateSample()

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Snapshot().HasData)
	assert.False(t, b.Snapshot().HasData)
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	st := NewStore(Deps{Assistant: &fakeAssistant{}, Clock: clock.Now}, 2*time.Hour)

	idle := st.Create()
	clock.Advance(90 * time.Minute)
	active := st.Create()
	clock.Advance(45 * time.Minute)
	_, ok := st.Get(active.ID)
	require.True(t, ok)

	assert.Equal(t, 1, st.Evict())
	_, ok = st.Get(idle.ID)
	assert.False(t, ok)
	_, ok = st.Get(active.ID)
	assert.True(t, ok)
}

func TestStoreEvictNotifiesCallbacks(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	st := NewStore(Deps{Assistant: &fakeAssistant{}, Clock: clock.Now}, time.Hour)

	var evicted []string
	st.OnEvict(func(id string) { evicted = append(evicted, id) })

	idle := st.Create()
	clock.Advance(2 * time.Hour)
	kept := st.Create()

	require.Equal(t, 1, st.Evict())
	assert.Equal(t, []string{idle.ID}, evicted)

	// explicit deletes are not evictions
	st.Delete(kept.ID)
	assert.Equal(t, []string{idle.ID}, evicted)
}

func TestStoreZeroTTLKeepsSessions(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	st := NewStore(Deps{Assistant: &fakeAssistant{}, Clock: clock.Now}, 0)
	st.Create()
	clock.Advance(1000 * time.Hour)

	assert.Zero(t, st.Evict())
	assert.Equal(t, 1, st.Len())
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	st := NewStore(Deps{Assistant: &fakeAssistant{}}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
