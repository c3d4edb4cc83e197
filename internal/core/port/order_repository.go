package port

import (
	"context"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// OrderRepository persists denormalized order records.
type OrderRepository interface {
	// Create assigns the human-readable order number (KWT-<year>-<seq>)
	// and returns the stored order.
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}
