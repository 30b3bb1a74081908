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
	"github.com/ghga-de/auth-adapter/internal/infra/logger"
)

var (
	// ErrAlreadyRegistered indicates the session already belongs to a
	// registry record.
	ErrAlreadyRegistered = errors.New("user already registered")
	// ErrNotRegistered indicates the operation requires a registered user.
	ErrNotRegistered = errors.New("user not registered")
)

// RegistrationService manages the user registry through the caller's own
// session: self-registration and re-confirmation of basic data. The
// identity fields always come from the session snapshot, which the IdP
// vouched for at login; only the title is client-supplied.
type RegistrationService struct {
	users  port.UserRepository
	store  port.SessionStore
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService wires the registration service.
func NewRegistrationService(users port.UserRepository, store port.SessionStore, events port.EventPublisher, log *zap.Logger) *RegistrationService {
	return &RegistrationService{
		users:  users,
		store:  store,
		events: events,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Register creates a registry record from the session's identity snapshot
// and binds the session to it.
func (s *RegistrationService) Register(ctx context.Context, session *domain.Session, title *string) (*domain.User, error) {
	if session.UserID != nil {
		return nil, ErrAlreadyRegistered
	}

	user := domain.User{
		ID:           uuid.NewString(),
		ExtID:        session.ExtID,
		Name:         session.UserName,
		Email:        session.UserEmail,
		Title:        title,
		Status:       domain.UserStatusActive,
		RegisteredAt: s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	session.UserID = &user.ID
	session.UserTitle = user.Title
	if err := s.store.Save(ctx, *session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		ExtID:        user.ExtID,
		Name:         user.Name,
		Email:        user.Email,
		Title:        user.Title,
		RegisteredAt: user.RegisteredAt,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Error("failed to publish user registration", zap.Error(err))
	}

	return &user, nil
}

// Update re-confirms the registry record from the session's identity
// snapshot, optionally changing the title.
func (s *RegistrationService) Update(ctx context.Context, session *domain.Session, title *string) error {
	if session.UserID == nil {
		return ErrNotRegistered
	}

	user, err := s.users.GetByID(ctx, *session.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	user.Name = session.UserName
	user.Email = session.UserEmail
	if title != nil {
		user.Title = title
	}

	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	session.UserTitle = user.Title
	if err := s.store.Save(ctx, *session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	event := domain.UserUpdatedEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Title:     user.Title,
		UpdatedAt: s.now(),
	}
	if err := s.events.PublishUserUpdated(ctx, event); err != nil {
		s.logger.Error("failed to publish user update", zap.Error(err))
	}

	return nil
}
