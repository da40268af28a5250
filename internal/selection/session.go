package selection

import (
	"sync"
	"time"
)

// Session is one client's selection for one room.
type Session struct {
	Key       string
	RoomID    int64
	Selector  *Selector
	StartedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = now
}

// UpdatedAt returns the time of the last activity.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) isExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.UpdatedAt()) > timeout
}

// SessionStore manages selection sessions.
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Get returns a live session or nil.
func (ss *SessionStore) Get(key string) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	session, ok := ss.sessions[key]
	if !ok || session.isExpired(ss.now(), ss.timeout) {
		return nil
	}
	return session
}

// GetOrCreate returns the existing session for key or starts a new one.
// An existing session picks up the latest rules.
func (ss *SessionStore) GetOrCreate(key string, roomID int64, rules Rules) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	session, ok := ss.sessions[key]
	if ok && !session.isExpired(now, ss.timeout) && session.RoomID == roomID {
		session.Selector.SetRules(rules)
		session.Touch(now)
		return session
	}

	session = &Session{
		Key:       key,
		RoomID:    roomID,
		Selector:  New(rules),
		StartedAt: now,
		updatedAt: now,
	}
	ss.sessions[key] = session
	return session
}

// Delete removes a session.
func (ss *SessionStore) Delete(key string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, key)
}

// Len returns the number of stored sessions, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Cleanup removes expired sessions.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	removed := 0
	for key, session := range ss.sessions {
		if session.isExpired(now, ss.timeout) {
			delete(ss.sessions, key)
			removed++
		}
	}
	return removed
}
