package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

func TestPurchaseRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPurchaseRepository(mock)

	createdAt := time.Now().UTC()
	purchase := domain.Purchase{
		ID:          "purchase-1",
		UserID:      "user-1",
		ProductID:   "premium",
		LicenseKey:  "AAAA-BBBB-CCCC-DDDD-EEEE-FFFF-0000-1111",
		AmountCents: 2999,
		Currency:    "usd",
		Provider:    domain.ProviderStripe,
		ProviderRef: "cs_test_abc123",
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   createdAt,
	}

	mock.ExpectExec(`INSERT INTO kwt\.purchases`).
		WithArgs(
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
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), purchase); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseRepository_CreateDuplicateProviderRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPurchaseRepository(mock)

	mock.ExpectExec(`INSERT INTO kwt\.purchases`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "purchases_provider_ref_key"})

	err = repo.Create(context.Background(), domain.Purchase{
		ID:          "purchase-2",
		UserID:      "user-1",
		ProductID:   "premium",
		AmountCents: 2999,
		Currency:    "usd",
		Provider:    domain.ProviderStripe,
		ProviderRef: "cs_test_abc123",
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseRepository_GetByProviderRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPurchaseRepository(mock)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(purchaseColumns).AddRow(
		"purchase-1", "user-1", "premium", "AAAA-BBBB", int64(2999), "usd",
		domain.ProviderStripe, "cs_test_abc123", domain.PurchaseStatusCompleted, createdAt,
	)

	mock.ExpectQuery(`SELECT .*FROM kwt\.purchases`).
		WithArgs(domain.ProviderStripe, "cs_test_abc123").
		WillReturnRows(rows)

	purchase, err := repo.GetByProviderRef(context.Background(), domain.ProviderStripe, "cs_test_abc123")
	if err != nil {
		t.Fatalf("GetByProviderRef returned error: %v", err)
	}
	if purchase.ID != "purchase-1" {
		t.Fatalf("expected purchase id purchase-1, got %s", purchase.ID)
	}
	if purchase.Provider != domain.ProviderStripe || purchase.ProviderRef != "cs_test_abc123" {
		t.Fatalf("unexpected provider correlation: %+v", purchase)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseRepository_GetByProviderRefNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPurchaseRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM kwt\.purchases`).
		WithArgs(domain.ProviderPayPal, "unknown-capture").
		WillReturnRows(pgxmock.NewRows(purchaseColumns))

	_, err = repo.GetByProviderRef(context.Background(), domain.ProviderPayPal, "unknown-capture")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurchaseRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPurchaseRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(purchaseColumns).AddRow(
		"purchase-2", "user-1", "lifetime", "KEY-2", int64(5999), "usd",
		domain.ProviderPayPal, "CAP-2", domain.PurchaseStatusCompleted, now,
	).AddRow(
		"purchase-1", "user-1", "basic", "KEY-1", int64(1499), "usd",
		domain.ProviderStripe, "cs_1", domain.PurchaseStatusCompleted, now.Add(-24*time.Hour),
	)

	mock.ExpectQuery(`SELECT .*FROM kwt\.purchases`).
		WithArgs("user-1").
		WillReturnRows(rows)

	purchases, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("expected two purchases, got %d", len(purchases))
	}
	if purchases[0].ID != "purchase-2" || purchases[1].ID != "purchase-1" {
		t.Fatalf("unexpected purchase order: %+v", purchases)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
