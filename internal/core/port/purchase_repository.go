package port

import (
	"context"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// PurchaseRepository persists the append-only purchase log.
//
// Create must surface repository.ErrDuplicate when the provider correlation
// id is already recorded; the unique index is the authoritative idempotency
// guard and GetByProviderRef is only a fast-path pre-check.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase domain.Purchase) error
	GetByProviderRef(ctx context.Context, provider domain.PaymentProvider, ref string) (*domain.Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Purchase, error)
}
