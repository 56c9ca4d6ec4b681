package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is the default idle timeout of a session.
const DefaultTimeout = 60 * time.Minute

// Store is the process-wide mapping from user ID to session.
// The map lock guards creation, purge and deletion; each session carries its
// own lock so mutations on one user never block another.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*UserSession
	timeout  time.Duration
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a session store with the given idle timeout.
func NewStore(timeout time.Duration, opts ...Option) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &Store{
		sessions: make(map[int64]*UserSession),
		timeout:  timeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate purges expired sessions, then returns the user's live session,
// creating an empty one when none exists. The returned session is touched.
func (s *Store) GetOrCreate(userID int64) *UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = newUserSession(userID, s.now)
		s.sessions[userID] = sess
		slog.Debug("session created", "user_id", userID, "session_id", sess.sessionID)
	}
	sess.touch()
	return sess
}

// Clear resets the user's session to empty. No-op if the user has none or
// the session already expired.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	s.purgeLocked()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()

	if ok {
		sess.reset()
	}
}

// Delete removes the user's session entirely.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// ActiveCount returns the number of tracked sessions.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// PurgeExpired removes all sessions idle longer than the timeout.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked()
}

// purgeLocked must be called with the map lock held.
func (s *Store) purgeLocked() int {
	now := s.now()
	removed := 0
	for uid, sess := range s.sessions {
		if sess.idleSince(now) > s.timeout {
			delete(s.sessions, uid)
			removed++
			slog.Debug("expired session removed", "user_id", uid)
		}
	}
	return removed
}
