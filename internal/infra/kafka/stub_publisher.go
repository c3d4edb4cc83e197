package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
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

// PublishUserRegistered logs commerce.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         logger.MaskEmail(event.Email),
		"username":      event.Username,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("commerce.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishOrderCompleted logs commerce.order.completed events.
func (p *StubPublisher) PublishOrderCompleted(_ context.Context, event domain.OrderCompletedEvent) error {
	payload := map[string]any{
		"order_id":     event.OrderID,
		"user_id":      event.UserID,
		"product_id":   event.ProductID,
		"amount_cents": event.AmountCents,
		"currency":     event.Currency,
		"provider":     string(event.Provider),
		"provider_ref": event.ProviderRef,
		"completed_at": event.CompletedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("commerce.order.completed", event.UserID, event.CompletedAt, payload)
	return nil
}

// PublishLicenseIssued logs commerce.license.issued events.
func (p *StubPublisher) PublishLicenseIssued(_ context.Context, event domain.LicenseIssuedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"product_id": event.ProductID,
		"order_id":   event.OrderID,
		"issued_at":  event.IssuedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("commerce.license.issued", event.UserID, event.IssuedAt, payload)
	return nil
}

// PublishSecurityAlert logs commerce.security.alert events.
func (p *StubPublisher) PublishSecurityAlert(_ context.Context, event domain.SecurityAlertEvent) error {
	payload := map[string]any{
		"kind":        event.Kind,
		"provider":    event.Provider,
		"reference":   event.Reference,
		"detail":      event.Detail,
		"occurred_at": event.OccurredAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("commerce.security.alert", "", event.OccurredAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
