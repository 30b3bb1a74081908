package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/security"
)

var (
	// ErrSecondFactorExists indicates the session already carries a TOTP
	// secret and re-enrolment was not forced.
	ErrSecondFactorExists = errors.New("second factor already exists")
	// ErrNoSecondFactor indicates verification was attempted before enrolment.
	ErrNoSecondFactor = errors.New("second factor not enrolled")
	// ErrInvalidCode indicates the submitted code did not verify.
	ErrInvalidCode = errors.New("invalid TOTP code")
)

// TOTPService manages second-factor enrolment and verification on top of
// the session record.
type TOTPService struct {
	handler *security.TOTPHandler
	store   port.SessionStore
	events  port.EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewTOTPService wires the second-factor service.
func NewTOTPService(handler *security.TOTPHandler, store port.SessionStore, events port.EventPublisher, log *zap.Logger) *TOTPService {
	return &TOTPService{
		handler: handler,
		store:   store,
		events:  events,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *TOTPService) WithClock(now func() time.Time) *TOTPService {
	s.now = now
	return s
}

// Enroll attaches a fresh encrypted TOTP secret to the session and
// returns the provisioning URI. An existing secret is only replaced when
// force is set; replacing a registered user's secret publishes a
// notification event. Enrolment never changes the session state.
func (s *TOTPService) Enroll(ctx context.Context, session *domain.Session, force bool) (string, error) {
	if session.TOTPToken != nil && !force {
		return "", ErrSecondFactorExists
	}
	replaced := session.TOTPToken != nil

	token, uri, err := s.handler.GenerateToken(session.ExtID)
	if err != nil {
		return "", fmt.Errorf("generate totp token: %w", err)
	}

	session.TOTPToken = token
	if err := s.store.Save(ctx, *session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	if replaced && session.UserID != nil {
		event := domain.SecondFactorRecreatedEvent{
			EventID:     uuid.NewString(),
			UserID:      *session.UserID,
			ExtID:       session.ExtID,
			RecreatedAt: s.now(),
		}
		if err := s.events.PublishSecondFactorRecreated(ctx, event); err != nil {
			s.logger.Error("failed to publish second factor recreation", zap.Error(err))
		}
	}

	return uri, nil
}

// Verify checks the submitted code against the session's secret. On
// success the session transitions to Authenticated. Failed attempts and
// replayed time steps update the token's counters, which are persisted
// either way.
func (s *TOTPService) Verify(ctx context.Context, session *domain.Session, code string) error {
	if session.TOTPToken == nil {
		return ErrNoSecondFactor
	}

	ok, err := s.handler.VerifyCode(session.TOTPToken, code, s.now())
	if err != nil {
		return fmt.Errorf("verify totp code: %w", err)
	}

	if !ok {
		// Counter bookkeeping must survive even a failed attempt.
		if saveErr := s.store.Save(ctx, *session); saveErr != nil {
			return fmt.Errorf("save session: %w", saveErr)
		}
		return ErrInvalidCode
	}

	session.Authenticate()
	if err := s.store.Save(ctx, *session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}
