package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
	"github.com/ghga-de/auth-adapter/internal/infra/logger"
	"github.com/ghga-de/auth-adapter/internal/infra/security"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

var (
	// ErrInvalidAccessToken indicates the bearer token could not be
	// verified against the identity provider.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrNoSession indicates the operation requires an active session.
	ErrNoSession = errors.New("no active session")
)

const maxInsertAttempts = 3

// SessionService owns the session lifecycle: login against the identity
// provider, registry resolution, logout.
type SessionService struct {
	cfg    config.SessionSettings
	store  port.SessionStore
	idp    port.IdentityProvider
	users  port.UserRepository
	claims port.ClaimRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService wires the session lifecycle service.
func NewSessionService(
	cfg config.SessionSettings,
	store port.SessionStore,
	idp port.IdentityProvider,
	users port.UserRepository,
	claims port.ClaimRepository,
	log *zap.Logger,
) *SessionService {
	return &SessionService{
		cfg:    cfg,
		store:  store,
		idp:    idp,
		users:  users,
		claims: claims,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Login verifies the bearer token with the identity provider and returns
// an active session for the reported identity. An existing session for
// the same identity is refreshed in place; otherwise a new session is
// created in state Registered. The boolean reports whether a session was
// created (and a cookie must be set).
func (s *SessionService) Login(ctx context.Context, existing *domain.Session, accessToken string) (*domain.Session, bool, error) {
	identity, err := s.idp.UserInfo(ctx, accessToken)
	if err != nil {
		s.logger.Debug("login rejected by identity provider", zap.Error(err))
		return nil, false, ErrInvalidAccessToken
	}

	if existing != nil && existing.ExtID == identity.Subject {
		if err := s.resolveRegistry(ctx, existing, *identity); err != nil {
			return nil, false, err
		}
		if err := s.store.Save(ctx, *existing); err != nil {
			return nil, false, fmt.Errorf("save session: %w", err)
		}
		return existing, false, nil
	}

	if existing != nil {
		// A different identity logged in from the same browser.
		if err := s.store.Delete(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete stale session: %w", err)
		}
	}

	now := s.now()
	session := domain.Session{
		ExtID:     identity.Subject,
		UserName:  identity.Name,
		UserEmail: identity.Email,
		State:     domain.SessionStateRegistered,
		Created:   now,
		LastUsed:  now,
	}

	session.CSRFToken, err = security.GenerateSecureToken(s.cfg.CSRFBytes)
	if err != nil {
		return nil, false, fmt.Errorf("generate csrf token: %w", err)
	}

	if err := s.resolveRegistry(ctx, &session, *identity); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		session.ID, err = security.GenerateSecureToken(s.cfg.IDBytes)
		if err != nil {
			return nil, false, fmt.Errorf("generate session id: %w", err)
		}

		err = s.store.Insert(ctx, session)
		if err == nil {
			s.logger.Info("session created",
				zap.String("email", logger.MaskEmail(session.UserEmail)),
				zap.Bool("registered", session.UserID != nil),
			)
			return &session, true, nil
		}
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("insert session: %w", err)
		}
	}

	return nil, false, fmt.Errorf("insert session: %w", repository.ErrAlreadyExists)
}

// resolveRegistry overlays the registry record onto the session snapshot.
// An unknown identity leaves the session unregistered. A registered user
// whose IdP-reported name or email diverges from the registry keeps the
// fresh IdP values and no role, forcing re-confirmation.
func (s *SessionService) resolveRegistry(ctx context.Context, session *domain.Session, identity domain.Identity) error {
	user, err := s.users.FindByExtID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			session.UserID = nil
			session.UserName = identity.Name
			session.UserEmail = identity.Email
			session.UserTitle = nil
			session.Role = nil
			return nil
		}
		return fmt.Errorf("find user by ext id: %w", err)
	}

	session.UserID = &user.ID
	session.UserTitle = user.Title

	if !identity.Matches(*user) {
		session.UserName = identity.Name
		session.UserEmail = identity.Email
		session.Role = nil
		return nil
	}

	session.UserName = user.Name
	session.UserEmail = user.Email

	role, err := s.claims.RoleFor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("resolve role: %w", err)
	}
	if role != "" {
		session.Role = &role
	} else {
		session.Role = nil
	}

	return nil
}

// Logout destroys the session. Logging out an already-gone session is
// not an error.
func (s *SessionService) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ExpiresIn returns the seconds until the idle timeout would expire the
// session, clamped by the remaining maximum lifetime.
func (s *SessionService) ExpiresIn(session *domain.Session) int64 {
	now := s.now()

	expiry := session.LastUsed.Add(s.cfg.IdleTimeout)
	if s.cfg.MaxLifetime > 0 {
		if absolute := session.Created.Add(s.cfg.MaxLifetime); absolute.Before(expiry) {
			expiry = absolute
		}
	}

	remaining := int64(expiry.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}
