package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
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

func (p *EventPublisher) publish(ctx context.Context, eventType, userID string, ts time.Time, payload any, extra map[string]string) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		metadata["request_id"] = requestID
	}
	for k, v := range extra {
		metadata[k] = v
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
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
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes commerce.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Email        string    `json:"email"`
		Username     string    `json:"username,omitempty"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		Username:     event.Username,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, "commerce.user.registered", event.UserID, event.RegisteredAt, payload, event.Metadata)
}

// PublishOrderCompleted publishes commerce.order.completed events.
func (p *EventPublisher) PublishOrderCompleted(ctx context.Context, event domain.OrderCompletedEvent) error {
	payload := struct {
		OrderID     string    `json:"order_id"`
		UserID      string    `json:"user_id"`
		ProductID   string    `json:"product_id"`
		AmountCents int64     `json:"amount_cents"`
		Currency    string    `json:"currency"`
		Provider    string    `json:"provider"`
		ProviderRef string    `json:"provider_ref"`
		CompletedAt time.Time `json:"completed_at"`
	}{
		OrderID:     event.OrderID,
		UserID:      event.UserID,
		ProductID:   event.ProductID,
		AmountCents: event.AmountCents,
		Currency:    event.Currency,
		Provider:    string(event.Provider),
		ProviderRef: event.ProviderRef,
		CompletedAt: event.CompletedAt.UTC(),
	}

	return p.publish(ctx, "commerce.order.completed", event.UserID, event.CompletedAt, payload, event.Metadata)
}

// PublishLicenseIssued publishes commerce.license.issued events. The key
// itself is never placed on the bus.
func (p *EventPublisher) PublishLicenseIssued(ctx context.Context, event domain.LicenseIssuedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		ProductID string    `json:"product_id"`
		OrderID   string    `json:"order_id"`
		IssuedAt  time.Time `json:"issued_at"`
	}{
		UserID:    event.UserID,
		ProductID: event.ProductID,
		OrderID:   event.OrderID,
		IssuedAt:  event.IssuedAt.UTC(),
	}

	return p.publish(ctx, "commerce.license.issued", event.UserID, event.IssuedAt, payload, event.Metadata)
}

// PublishSecurityAlert publishes commerce.security.alert events.
func (p *EventPublisher) PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error {
	payload := struct {
		Kind       string    `json:"kind"`
		Provider   string    `json:"provider,omitempty"`
		Reference  string    `json:"reference,omitempty"`
		Detail     string    `json:"detail,omitempty"`
		OccurredAt time.Time `json:"occurred_at"`
	}{
		Kind:       event.Kind,
		Provider:   event.Provider,
		Reference:  event.Reference,
		Detail:     event.Detail,
		OccurredAt: event.OccurredAt.UTC(),
	}

	return p.publish(ctx, "commerce.security.alert", "", event.OccurredAt, payload, event.Metadata)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
