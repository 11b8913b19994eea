package session

import (
	"sync"
	"time"

	"github.com/Srahin000/bumblebee-smart-speaker/core"
)

// Config controls session memory bounds and eviction.
type Config struct {
	// MaxHistory is the maximum number of exchanges kept per session.
	// Older entries are dropped first.
	MaxHistory int `json:"max_history"`
	// TTL is how long a session may stay idle before EvictStale removes it.
	TTL time.Duration `json:"ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxHistory: 20,
		TTL:        30 * time.Minute,
	}
}

// Store keeps all live sessions for the process. It is safe for concurrent
// use; mutations to a single session are serialized by a per-session lock so
// two pipeline runs sharing one session id cannot interleave their appends.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
	config   Config
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore(config Config) *Store {
	if config.MaxHistory <= 0 {
		config.MaxHistory = DefaultConfig().MaxHistory
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		config:   config,
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, refreshing its last-activity time.
// An empty or unknown id creates a new session with a freshly generated id.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.LastActivity = s.now()
			return sess.snapshot()
		}
	}

	sess := newSession(s.now())
	s.sessions[sess.ID] = sess
	s.locks[sess.ID] = &sync.Mutex{}
	return sess.snapshot()
}

// Append records one exchange on an existing session, refreshes its
// last-activity time, and truncates history to the newest MaxHistory
// entries. Returns core.ErrSessionNotFound for an unknown id.
func (s *Store) Append(id string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return core.ErrSessionNotFound
	}

	sess.History = append(sess.History, Exchange{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	})
	if excess := len(sess.History) - s.config.MaxHistory; excess > 0 {
		sess.History = append([]Exchange(nil), sess.History[excess:]...)
	}
	sess.LastActivity = s.now()
	return nil
}

// Lock acquires the per-session mutation lock for id, returning an unlock
// func. Unknown ids return a no-op so callers need not special-case them.
// The orchestrator holds this lock across one pipeline run's two appends.
func (s *Store) Lock(id string) func() {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return func() {}
	}
	lock.Lock()
	return lock.Unlock
}

// HistoryOf returns a copy of the session's history, oldest first.
// Unknown ids yield an empty slice.
func (s *Store) HistoryOf(id string) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	sess.LastActivity = s.now()
	return append([]Exchange(nil), sess.History...)
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.locks, id)
}

// EvictStale removes every session idle longer than ttl at time now.
// Pure housekeeping; safe to call repeatedly.
func (s *Store) EvictStale(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-ttl)
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.locks, id)
		}
	}
}

// Sweep runs EvictStale with the store's configured TTL and wall-clock now.
func (s *Store) Sweep() {
	s.EvictStale(s.now(), s.config.TTL)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// snapshot returns a copy safe to hand out without exposing internal slices.
func (sess *Session) snapshot() *Session {
	cp := *sess
	cp.History = append([]Exchange(nil), sess.History...)
	return &cp
}
