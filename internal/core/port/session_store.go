package port

import (
	"context"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

// SessionStore persists session records keyed by their opaque id.
//
// Get applies the idle-timeout and maximum-lifetime rules: an expired
// record is evicted and reported as repository.ErrExpired. A successful
// lookup refreshes the last-used timestamp (sliding idle timeout).
// Concurrent writers to the same id are last-writer-wins.
type SessionStore interface {
	// Insert stores a freshly created session; it fails if the id is
	// already taken.
	Insert(ctx context.Context, session domain.Session) error
	// Save writes the session back, replacing the stored record.
	Save(ctx context.Context, session domain.Session) error
	// Get returns the session for the id, refreshing its last-used time.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	// Delete removes the session; deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
