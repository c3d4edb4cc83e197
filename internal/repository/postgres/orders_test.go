package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

func TestOrderRepository_CreateAssignsOrderNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewOrderRepository(mock)

	createdAt := time.Date(2026, time.March, 14, 10, 30, 0, 0, time.UTC)
	wantOrderID := fmt.Sprintf("KWT-%d-%06d", 2026, 42)

	mock.ExpectQuery(`SELECT nextval\('kwt\.order_seq'\)`).
		WillReturnRows(pgxmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	mock.ExpectExec(`INSERT INTO kwt\.orders`).
		WithArgs(
			"order-1",
			wantOrderID,
			"user-1",
			"buyer@example.com",
			"buyer",
			10,
			"premium",
			"KiwiTweaks Premium",
			int64(2999),
			"usd",
			"AAAA-BBBB",
			domain.OrderStatusCompleted,
			createdAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	order, err := repo.Create(context.Background(), domain.Order{
		ID:             "order-1",
		UserID:         "user-1",
		Email:          "buyer@example.com",
		Username:       "buyer",
		AccountAgeDays: 10,
		ProductID:      "premium",
		ProductName:    "KiwiTweaks Premium",
		AmountCents:    2999,
		Currency:       "usd",
		LicenseKey:     "AAAA-BBBB",
		Status:         domain.OrderStatusCompleted,
		CreatedAt:      createdAt,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if order.OrderID != wantOrderID {
		t.Fatalf("expected order number %s, got %s", wantOrderID, order.OrderID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderRepository_GetByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewOrderRepository(mock)

	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows(orderColumns).AddRow(
		"order-1", "KWT-2026-000042", "user-1", "buyer@example.com", "buyer", 10,
		"premium", "KiwiTweaks Premium", int64(2999), "usd", "AAAA-BBBB",
		domain.OrderStatusCompleted, createdAt,
	)

	mock.ExpectQuery(`SELECT .*FROM kwt\.orders`).
		WithArgs("KWT-2026-000042").
		WillReturnRows(rows)

	order, err := repo.GetByOrderID(context.Background(), "KWT-2026-000042")
	if err != nil {
		t.Fatalf("GetByOrderID returned error: %v", err)
	}
	if order.OrderID != "KWT-2026-000042" || order.UserID != "user-1" {
		t.Fatalf("unexpected order: %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderRepository_GetByOrderIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM kwt\.orders`).
		WithArgs("KWT-2026-999999").
		WillReturnRows(pgxmock.NewRows(orderColumns))

	_, err = repo.GetByOrderID(context.Background(), "KWT-2026-999999")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewOrderRepository(mock)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(orderColumns).AddRow(
		"order-2", "KWT-2026-000043", "user-1", "buyer@example.com", "buyer", 11,
		"lifetime", "KiwiTweaks Lifetime", int64(5999), "usd", "KEY-2",
		domain.OrderStatusCompleted, now,
	).AddRow(
		"order-1", "KWT-2026-000042", "user-1", "buyer@example.com", "buyer", 10,
		"basic", "KiwiTweaks Basic", int64(1499), "usd", "KEY-1",
		domain.OrderStatusCompleted, now.Add(-24*time.Hour),
	)

	mock.ExpectQuery(`SELECT .*FROM kwt\.orders`).
		WithArgs("user-1").
		WillReturnRows(rows)

	orders, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected two orders, got %d", len(orders))
	}
	if orders[0].OrderID != "KWT-2026-000043" || orders[1].OrderID != "KWT-2026-000042" {
		t.Fatalf("unexpected order listing: %+v", orders)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewOrderRepository(mock)

	mock.ExpectExec(`UPDATE kwt\.orders`).
		WithArgs(domain.OrderStatusRefunded, "KWT-2026-000042").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateStatus(context.Background(), "KWT-2026-000042", domain.OrderStatusRefunded); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
