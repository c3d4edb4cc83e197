package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

var purchaseColumns = []string{
	"id",
	"user_id",
	"product_id",
	"license_key",
	"amount_cents",
	"currency",
	"provider",
	"provider_ref",
	"status",
	"created_at",
}

// PurchaseRepository implements port.PurchaseRepository using PostgreSQL.
// The unique index on (provider, provider_ref) is the idempotency guard
// against duplicate webhook deliveries.
type PurchaseRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPurchaseRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewPurchaseRepository(exec pgExecutor) *PurchaseRepository {
	repo := &PurchaseRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *PurchaseRepository) WithTx(tx pgx.Tx) *PurchaseRepository {
	if tx == nil {
		return r
	}
	return &PurchaseRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var purchase domain.Purchase
	if err := row.Scan(
		&purchase.ID,
		&purchase.UserID,
		&purchase.ProductID,
		&purchase.LicenseKey,
		&purchase.AmountCents,
		&purchase.Currency,
		&purchase.Provider,
		&purchase.ProviderRef,
		&purchase.Status,
		&purchase.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	return &purchase, nil
}

// Create appends a purchase record. Returns repository.ErrDuplicate when the
// provider correlation id was already recorded.
func (r *PurchaseRepository) Create(ctx context.Context, purchase domain.Purchase) error {
	query := r.builder.Insert("kwt.purchases").
		Columns(purchaseColumns...).
		Values(
			purchase.ID,
			purchase.UserID,
			purchase.ProductID,
			purchase.LicenseKey,
			purchase.AmountCents,
			purchase.Currency,
			purchase.Provider,
			purchase.ProviderRef,
			purchase.Status,
			purchase.CreatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert purchase sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	return nil
}

// GetByProviderRef looks up a purchase by its provider correlation id.
func (r *PurchaseRepository) GetByProviderRef(ctx context.Context, provider domain.PaymentProvider, ref string) (*domain.Purchase, error) {
	stmt, args, err := r.builder.
		Select(purchaseColumns...).
		From("kwt.purchases").
		Where(squirrel.Eq{"provider": provider, "provider_ref": ref}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select purchase sql: %w", err)
	}

	return scanPurchase(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByUser returns a user's purchases, newest first.
func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string) ([]domain.Purchase, error) {
	stmt, args, err := r.builder.
		Select(purchaseColumns...).
		From("kwt.purchases").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list purchases sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0)
	for rows.Next() {
		var purchase domain.Purchase
		if err := rows.Scan(
			&purchase.ID,
			&purchase.UserID,
			&purchase.ProductID,
			&purchase.LicenseKey,
			&purchase.AmountCents,
			&purchase.Currency,
			&purchase.Provider,
			&purchase.ProviderRef,
			&purchase.Status,
			&purchase.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return purchases, nil
}

var _ port.PurchaseRepository = (*PurchaseRepository)(nil)
