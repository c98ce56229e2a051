package bulkentry

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore tracks open bulk-entry sessions. One session is open per
// tenant at a time: re-opening returns the existing session untouched, so
// user data survives a modal being closed and reopened.
type SessionStore struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]*Session
	byTenant map[string]*Session
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:     make(map[uuid.UUID]*Session),
		byTenant: make(map[string]*Session),
	}
}

// Open returns the tenant's open session, creating one with count blank rows
// if none exists. The second return reports whether a new session was
// created.
func (s *SessionStore) Open(tenantID string, count int) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byTenant[tenantID]; ok {
		return existing, false
	}
	session := newSession(tenantID, count)
	s.byID[session.ID] = session
	s.byTenant[tenantID] = session
	return session, true
}

// Get returns a session by id, scoped to the tenant
func (s *SessionStore) Get(tenantID string, id uuid.UUID) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byID[id]
	if !ok || session.TenantID != tenantID {
		return nil, false
	}
	return session, true
}

// Close discards a session and all of its state
func (s *SessionStore) Close(tenantID string, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[id]
	if !ok || session.TenantID != tenantID {
		return false
	}
	delete(s.byID, id)
	delete(s.byTenant, session.TenantID)
	return true
}

// Len returns the number of open sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
