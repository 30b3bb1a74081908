package port

import (
	"context"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

// EventPublisher notifies other services of user lifecycle changes.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error
	PublishSecondFactorRecreated(ctx context.Context, event domain.SecondFactorRecreatedEvent) error
}
