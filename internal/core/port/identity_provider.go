package port

import (
	"context"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

// IdentityProvider resolves an external bearer token to a verified
// identity snapshot by calling the IdP's userinfo endpoint. No trust is
// placed in the token content itself.
type IdentityProvider interface {
	UserInfo(ctx context.Context, accessToken string) (*domain.Identity, error)
}
