package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Store keeps sessions in memory. Sessions idle longer than the TTL are swept, and the least
// recently used session is evicted when the store is full. The evict callback runs with the
// session locked.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	onEvict  func(*Session)
	now      func() time.Time
}

// NewStore constructs an empty store. onEvict may be nil.
func NewStore(ttl time.Duration, maxSessions int, onEvict func(*Session)) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 200
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      maxSessions,
		onEvict:  onEvict,
		now:      time.Now,
	}
}

// Create registers a new session with a random ID.
func (st *Store) Create() *Session {
	s := NewSession(uuid.NewString())
	s.lastActivity = st.now()

	st.mu.Lock()
	var victim *Session
	if len(st.sessions) >= st.max {
		victim = st.lruLocked()
		if victim != nil {
			delete(st.sessions, victim.ID)
		}
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.evict(victim)
	return s
}

// Get returns the session and refreshes its activity time.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.lastActivity = st.now()
	}
	return s, ok
}

// Do runs fn with the session locked, so only one transition per session is in flight.
func (st *Store) Do(ctx context.Context, id string, fn func(*Session) error) error {
	s, ok := st.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !st.holds(id, s) {
		return ErrSessionNotFound
	}
	return fn(s)
}

// holds reports whether s is still the live session for id. A session removed while a caller
// waited on its lock has already been handed to the evict callback.
func (st *Store) holds(id string, s *Session) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id] == s
}

// Delete removes the session and runs the evict callback. Unknown IDs are ignored.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		st.evict(s)
	}
	return ok
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and reports how many were removed.
func (st *Store) Sweep() int {
	now := st.now()
	var stale []*Session

	st.mu.Lock()
	for id, s := range st.sessions {
		if now.Sub(s.lastActivity) > st.ttl {
			stale = append(stale, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range stale {
		st.evict(s)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *Store) lruLocked() *Session {
	var oldest *Session
	for _, s := range st.sessions {
		if oldest == nil || s.lastActivity.Before(oldest.lastActivity) {
			oldest = s
		}
	}
	return oldest
}

func (st *Store) evict(s *Session) {
	if s == nil || st.onEvict == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.onEvict(s)
}
