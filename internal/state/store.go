package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps sessions in process memory, keyed by a random id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
	ttl      time.Duration
	onEvict  []func(id string)
}

// NewStore creates a store. Sessions idle for longer than ttl are removed by
// Evict; a ttl of zero keeps sessions forever.
func NewStore(deps Deps, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		deps:     deps.withDefaults(),
		ttl:      ttl,
	}
}

// Create starts a new empty session.
func (st *Store) Create() *Session {
	s := NewSession(uuid.NewString(), st.deps)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.deps.Logger.Debug("session created", zap.String("session_id", s.ID))
	return s
}

// Get returns the session and marks it as seen.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Delete removes a session. It reports whether the session existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// OnEvict registers fn to be called with the id of every session Evict
// removes. Callbacks run after the store lock is released.
func (st *Store) OnEvict(fn func(id string)) {
	st.mu.Lock()
	st.onEvict = append(st.onEvict, fn)
	st.mu.Unlock()
}

// Evict removes sessions idle for longer than the ttl and returns how many
// were removed.
func (st *Store) Evict() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.deps.Clock().Add(-st.ttl)

	st.mu.Lock()
	var evicted []string
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(st.sessions, id)
			evicted = append(evicted, id)
		}
	}
	hooks := append([]func(string){}, st.onEvict...)
	st.mu.Unlock()

	for _, id := range evicted {
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(evicted)
}

// Run evicts idle sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Evict(); n > 0 {
				st.deps.Logger.Info("evicted idle sessions", zap.Int("count", n), zap.Int("remaining", st.Len()))
			}
		}
	}
}
