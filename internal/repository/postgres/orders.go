package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

var orderColumns = []string{
	"id",
	"order_id",
	"user_id",
	"email",
	"username",
	"account_age_days",
	"product_id",
	"product_name",
	"amount_cents",
	"currency",
	"license_key",
	"status",
	"created_at",
}

// OrderRepository implements port.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOrderRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewOrderRepository(exec pgExecutor) *OrderRepository {
	repo := &OrderRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *OrderRepository) WithTx(tx pgx.Tx) *OrderRepository {
	if tx == nil {
		return r
	}
	return &OrderRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	if err := row.Scan(
		&order.ID,
		&order.OrderID,
		&order.UserID,
		&order.Email,
		&order.Username,
		&order.AccountAgeDays,
		&order.ProductID,
		&order.ProductName,
		&order.AmountCents,
		&order.Currency,
		&order.LicenseKey,
		&order.Status,
		&order.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}

// nextOrderID draws the shared sequence and formats the human-readable
// order number. The year prefix comes from the creation timestamp.
func (r *OrderRepository) nextOrderID(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.exec.QueryRow(ctx, "SELECT nextval('kwt.order_seq')").Scan(&seq); err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("KWT-%d-%06d", at.UTC().Year(), seq), nil
}

// Create assigns the order number and inserts the denormalized order row.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	orderID, err := r.nextOrderID(ctx, createdAt)
	if err != nil {
		return nil, err
	}
	order.OrderID = orderID
	order.CreatedAt = createdAt

	query := r.builder.Insert("kwt.orders").
		Columns(orderColumns...).
		Values(
			order.ID,
			order.OrderID,
			order.UserID,
			order.Email,
			order.Username,
			order.AccountAgeDays,
			order.ProductID,
			order.ProductName,
			order.AmountCents,
			order.Currency,
			order.LicenseKey,
			order.Status,
			order.CreatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert order sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return &order, nil
}

// GetByOrderID retrieves an order by its human-readable number.
func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	stmt, args, err := r.builder.
		Select(orderColumns...).
		From("kwt.orders").
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select order sql: %w", err)
	}

	return scanOrder(r.exec.QueryRow(ctx, stmt, args...))
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	stmt, args, err := r.builder.
		Select(orderColumns...).
		From("kwt.orders").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list orders sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.OrderID,
			&order.UserID,
			&order.Email,
			&order.Username,
			&order.AccountAgeDays,
			&order.ProductID,
			&order.ProductName,
			&order.AmountCents,
			&order.Currency,
			&order.LicenseKey,
			&order.Status,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus transitions an order's lifecycle state.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	stmt, args, err := r.builder.Update("kwt.orders").
		Set("status", status).
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update order status sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.OrderRepository = (*OrderRepository)(nil)
