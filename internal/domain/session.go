package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state of one login. It is created by Login and discarded by Logout.
type Session struct {
	ID        string
	UserID    string
	IsTrainer bool
	CreatedAt time.Time

	mu             sync.Mutex
	lastActivityID string
}

func (s *Session) rememberActivity(id string) {
	s.mu.Lock()
	s.lastActivityID = id
	s.mu.Unlock()
}

// takeLastActivity returns the remembered activity and clears it.
func (s *Session) takeLastActivity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.lastActivityID
	s.lastActivityID = ""
	return id, id != ""
}

func (s *Session) restoreActivity(id string) {
	s.mu.Lock()
	if s.lastActivityID == "" {
		s.lastActivityID = id
	}
	s.mu.Unlock()
}

// CanUndo reports whether an entry is waiting to be undone.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityID != ""
}

// SessionStore keeps open sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore constructs an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Open creates and registers a session.
func (s *SessionStore) Open(userID string, isTrainer bool, now time.Time) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		IsTrainer: isTrainer,
		CreatedAt: now,
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns an open session.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionClosed
	}
	return session, nil
}

// Close removes the session. It reports whether the session was open.
func (s *SessionStore) Close(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
