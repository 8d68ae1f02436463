package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration, maxSessions int, onEvict func(*Session)) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	st := NewStore(ttl, maxSessions, onEvict)
	st.now = clock.Now
	return st, clock
}

func TestStoreCreateGetDelete(t *testing.T) {
	var evicted []string
	st, _ := newTestStore(time.Hour, 10, func(s *Session) { evicted = append(evicted, s.ID) })

	s := st.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, StateWelcome, s.State)
	assert.Equal(t, 1, st.Count())

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.True(t, st.Delete(s.ID))
	assert.False(t, st.Delete(s.ID))
	assert.Equal(t, []string{s.ID}, evicted)

	_, ok = st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	st, clock := newTestStore(time.Hour, 2, func(s *Session) { evicted = append(evicted, s.ID) })

	first := st.Create()
	clock.Advance(time.Minute)
	second := st.Create()
	clock.Advance(time.Minute)
	_, ok := st.Get(first.ID)
	require.True(t, ok)
	clock.Advance(time.Minute)

	third := st.Create()
	assert.Equal(t, 2, st.Count())
	assert.Equal(t, []string{second.ID}, evicted)
	_, ok = st.Get(first.ID)
	assert.True(t, ok)
	_, ok = st.Get(third.ID)
	assert.True(t, ok)
}

func TestStoreSweepRemovesIdleSessions(t *testing.T) {
	var evicted []string
	st, clock := newTestStore(30*time.Minute, 10, func(s *Session) { evicted = append(evicted, s.ID) })

	idle := st.Create()
	clock.Advance(20 * time.Minute)
	active := st.Create()
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, []string{idle.ID}, evicted)
	_, ok := st.Get(active.ID)
	assert.True(t, ok)
	assert.Equal(t, 0, st.Sweep())
}

func TestStoreDoSerializesSession(t *testing.T) {
	st, _ := newTestStore(time.Hour, 10, nil)
	s := st.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.Do(context.Background(), s.ID, func(s *Session) error {
				s.UserDescription += "x"
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, s.UserDescription, 50)
}

func TestStoreDoErrors(t *testing.T) {
	st, _ := newTestStore(time.Hour, 10, nil)

	err := st.Do(context.Background(), "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s := st.Create()
	boom := errors.New("boom")
	err = st.Do(context.Background(), s.ID, func(*Session) error { return boom })
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = st.Do(ctx, s.ID, func(*Session) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStoreDoSkipsSessionRemovedWhileWaiting(t *testing.T) {
	st, _ := newTestStore(time.Hour, 10, nil)
	s := st.Create()

	s.mu.Lock()
	done := make(chan error, 1)
	called := false
	go func() {
		done <- st.Do(context.Background(), s.ID, func(*Session) error {
			called = true
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	st.mu.Lock()
	delete(st.sessions, s.ID)
	st.mu.Unlock()
	s.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionNotFound)
	case <-time.After(time.Second):
		t.Fatal("Do did not return")
	}
	assert.False(t, called)
}
