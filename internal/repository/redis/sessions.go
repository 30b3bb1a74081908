package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

const defaultSessionPrefix = "authgw:session"

// SessionStore keeps session records in Redis as JSON blobs.
//
// The key TTL enforces the idle timeout; each Get rewrites the record
// with a fresh TTL, sliding the timeout forward. The absolute maximum
// lifetime is checked against the stored creation time on every read.
type SessionStore struct {
	client      *red.Client
	prefix      string
	idleTimeout time.Duration
	maxLifetime time.Duration
	now         func() time.Time
}

// NewSessionStore constructs a Redis-backed session store.
func NewSessionStore(client *red.Client, keyPrefix string, idleTimeout, maxLifetime time.Duration) *SessionStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}

	return &SessionStore{
		client:      client,
		prefix:      prefix,
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
func (s *SessionStore) Insert(ctx context.Context, session domain.Session) error {
	key := s.key(session.ID)
	if key == "" {
		return fmt.Errorf("session id is required")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, payload, s.idleTimeout).Result()
	if err != nil {
		return fmt.Errorf("redis insert session: %w", err)
	}
	if !ok {
		return repository.ErrAlreadyExists
	}
	return nil
}

// Save writes the session back, replacing the stored record.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	key := s.key(session.ID)
	if key == "" {
		return fmt.Errorf("session id is required")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, s.idleTimeout).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// Get returns the session for the id, refreshing its last-used time.
// Records past their maximum lifetime are evicted and reported expired;
// the idle timeout itself is enforced by the key TTL.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := s.key(sessionID)
	if key == "" {
		return nil, fmt.Errorf("session id is required")
	}

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(value), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	now := s.now()
	if session.Expired(now, s.idleTimeout, s.maxLifetime) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("redis evict session: %w", err)
		}
		return nil, repository.ErrExpired
	}

	session.Touch(now)
	if err := s.Save(ctx, session); err != nil {
		return nil, err
	}

	return &session, nil
}

// Delete removes the session; deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)
	if key == "" {
		return fmt.Errorf("session id is required")
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}

var _ port.SessionStore = (*SessionStore)(nil)
