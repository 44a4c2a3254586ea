package dialog

import "sync"

// Draft is the in-progress, not-yet-committed set of fields collected
// during one interview.
type Draft struct {
	Category      *string
	Emotion       string
	Intensity     *int
	BodySensation *string
	Reason        *string
	Note          *string
}

// Session is one user's transient interview state. At most one
// non-terminal session exists per user.
type Session struct {
	State State
	Draft Draft
}

// SessionStore keeps sessions keyed by user ID. It is injected into the
// engine rather than held as a process global so the engine stays
// testable and shardable.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, or nil when they are idle. A user's
// events are handled sequentially, so the returned pointer is safe to
// mutate until the next Put/Clear for that user.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// Put installs (or replaces) the user's session.
func (s *SessionStore) Put(userID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Clear discards the user's session and its draft.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
