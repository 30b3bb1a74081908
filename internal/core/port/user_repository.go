package port

import (
	"context"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

// UserRepository is the registry of known users.
type UserRepository interface {
	// FindByExtID looks a user up by the external (IdP) identifier.
	FindByExtID(ctx context.Context, extID string) (*domain.User, error)
	// GetByID retrieves a user by the internal identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Create inserts a new registry record.
	Create(ctx context.Context, user domain.User) error
	// Update replaces the stored record for the user's id.
	Update(ctx context.Context, user domain.User) error
}

// ClaimRepository resolves authorization claims granted to users.
type ClaimRepository interface {
	// RoleFor returns the role granted to the user through a currently
	// valid claim record, or the empty string when none is granted.
	RoleFor(ctx context.Context, userID string) (string, error)
}
