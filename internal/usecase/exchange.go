package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/security"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

const rejectInvalidToken = "Invalid access token"

// ExchangeService turns external credentials into internal tokens. It is
// the only component that mints tokens, and it never trusts a
// client-asserted identity without checking it against the IdP or an
// authenticated session.
type ExchangeService struct {
	codec  *security.TokenCodec
	idp    port.IdentityProvider
	users  port.UserRepository
	claims port.ClaimRepository
	logger *zap.Logger
}

// NewExchangeService wires the token exchange engine.
func NewExchangeService(
	codec *security.TokenCodec,
	idp port.IdentityProvider,
	users port.UserRepository,
	claims port.ClaimRepository,
	log *zap.Logger,
) *ExchangeService {
	return &ExchangeService{
		codec:  codec,
		idp:    idp,
		users:  users,
		claims: claims,
		logger: log,
	}
}

// ExchangeBearer verifies an external access token against the IdP and
// mints an internal token for the reported identity. Every verification
// failure, including IdP timeouts, rejects the request.
func (s *ExchangeService) ExchangeBearer(ctx context.Context, accessToken string) (domain.ExchangeDecision, error) {
	identity, err := s.idp.UserInfo(ctx, accessToken)
	if err != nil {
		s.logger.Debug("bearer token rejected", zap.Error(err))
		return domain.Reject(rejectInvalidToken), nil
	}

	token, err := s.mint(ctx, *identity)
	if err != nil {
		return domain.ExchangeDecision{}, err
	}

	return domain.Exchanged(token), nil
}

// ExchangeSession mints an internal token from a session snapshot. Only a
// session that has passed the second factor is exchanged; anything less
// passes through without an identity.
func (s *ExchangeService) ExchangeSession(ctx context.Context, session *domain.Session) (domain.ExchangeDecision, error) {
	if session == nil || session.State != domain.SessionStateAuthenticated {
		return domain.PassThrough(), nil
	}

	identity := domain.Identity{
		Subject: session.ExtID,
		Name:    session.UserName,
		Email:   session.UserEmail,
	}

	token, err := s.mint(ctx, identity)
	if err != nil {
		return domain.ExchangeDecision{}, err
	}

	return domain.Exchanged(token), nil
}

// Validity exposes the minted token lifetime.
func (s *ExchangeService) Validity() time.Duration {
	return s.codec.Validity()
}

// mint builds the internal claim set for the verified identity. An
// identity unknown to the registry gets an unregistered token carrying
// the external id. A registered user gets the stored record; if the
// IdP-reported name or email no longer match the record, the token
// carries the invalid status sentinel and the fresh IdP values, without
// touching the registry.
func (s *ExchangeService) mint(ctx context.Context, identity domain.Identity) (string, error) {
	user, err := s.users.FindByExtID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.codec.Mint(&security.IdentityClaims{
				ExtID: identity.Subject,
				Name:  identity.Name,
				Email: identity.Email,
			})
		}
		return "", fmt.Errorf("find user by ext id: %w", err)
	}

	status := user.Status
	name, email := user.Name, user.Email
	if !identity.Matches(*user) {
		// downstream re-verification needs the identity the IdP reports now
		status = domain.UserStatusInvalid
		name, email = identity.Name, identity.Email
	}

	claims := &security.IdentityClaims{
		ID:     user.ID,
		Name:   name,
		Email:  email,
		Status: string(status),
	}
	if user.Title != nil {
		claims.Title = *user.Title
	}

	if status == domain.UserStatusActive {
		role, err := s.claims.RoleFor(ctx, user.ID)
		if err != nil {
			return "", fmt.Errorf("resolve role: %w", err)
		}
		claims.Role = role
	}

	return s.codec.Mint(claims)
}
