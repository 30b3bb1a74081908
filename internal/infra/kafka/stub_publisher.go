package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"ext_id":        event.ExtID,
		"name":          event.Name,
		"email":         event.Email,
		"title":         event.Title,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserUpdated logs user.updated events.
func (p *StubPublisher) PublishUserUpdated(_ context.Context, event domain.UserUpdatedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"name":       event.Name,
		"email":      event.Email,
		"title":      event.Title,
		"updated_at": event.UpdatedAt,
	}
	p.logEvent("user.updated", event.UserID, event.UpdatedAt, payload)
	return nil
}

// PublishSecondFactorRecreated logs second_factor.recreated events.
func (p *StubPublisher) PublishSecondFactorRecreated(_ context.Context, event domain.SecondFactorRecreatedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"ext_id":       event.ExtID,
		"recreated_at": event.RecreatedAt,
	}
	p.logEvent("second_factor.recreated", event.UserID, event.RecreatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
