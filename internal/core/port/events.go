package port

import (
	"context"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishOrderCompleted(ctx context.Context, event domain.OrderCompletedEvent) error
	PublishLicenseIssued(ctx context.Context, event domain.LicenseIssuedEvent) error
	PublishSecurityAlert(ctx context.Context, event domain.SecurityAlertEvent) error
}
