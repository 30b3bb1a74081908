package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

// SessionStore keeps sessions in process memory. It backs development
// setups without Redis and is the store of choice in handler tests.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]domain.Session
	idleTimeout time.Duration
	maxLifetime time.Duration
	now         func() time.Time
}

// NewSessionStore constructs an in-memory session store.
func NewSessionStore(idleTimeout, maxLifetime time.Duration) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]domain.Session),
		idleTimeout: idleTimeout,
		maxLifetime: maxLifetime,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

// Insert stores a freshly created session, failing when the id is taken.
func (s *SessionStore) Insert(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.ID]; ok {
		if !existing.Expired(s.now(), s.idleTimeout, s.maxLifetime) {
			return repository.ErrAlreadyExists
		}
	}

	s.sessions[session.ID] = session
	return nil
}

// Save writes the session back, replacing the stored record.
func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

// Get returns the session for the id, refreshing its last-used time.
func (s *SessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	now := s.now()
	if session.Expired(now, s.idleTimeout, s.maxLifetime) {
		delete(s.sessions, sessionID)
		return nil, repository.ErrExpired
	}

	session.Touch(now)
	s.sessions[sessionID] = session

	return &session, nil
}

// Delete removes the session; deleting a missing session is not an error.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops all expired sessions and reports how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if session.Expired(now, s.idleTimeout, s.maxLifetime) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

var _ port.SessionStore = (*SessionStore)(nil)
