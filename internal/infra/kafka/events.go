package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		ExtID        string    `json:"ext_id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Title        *string   `json:"title,omitempty"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		ExtID:        event.ExtID,
		Name:         event.Name,
		Email:        event.Email,
		Title:        event.Title,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserUpdated publishes user.updated events.
func (p *EventPublisher) PublishUserUpdated(ctx context.Context, event domain.UserUpdatedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Title     *string   `json:"title,omitempty"`
		UpdatedAt time.Time `json:"updated_at"`
	}{
		UserID:    event.UserID,
		Name:      event.Name,
		Email:     event.Email,
		Title:     event.Title,
		UpdatedAt: event.UpdatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "user.updated", event.UserID, event.UpdatedAt, payload)
}

// PublishSecondFactorRecreated publishes second_factor.recreated events.
func (p *EventPublisher) PublishSecondFactorRecreated(ctx context.Context, event domain.SecondFactorRecreatedEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		ExtID       string    `json:"ext_id"`
		RecreatedAt time.Time `json:"recreated_at"`
	}{
		UserID:      event.UserID,
		ExtID:       event.ExtID,
		RecreatedAt: event.RecreatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "second_factor.recreated", event.UserID, event.RecreatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
