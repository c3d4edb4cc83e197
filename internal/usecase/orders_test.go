package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

func TestOrderGetEnforcesOwnership(t *testing.T) {
	orders := newOrderRepoMock()
	created, err := orders.Create(context.Background(), domain.Order{
		ID:        "o-1",
		UserID:    "owner",
		ProductID: "basic",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	svc := NewOrderService(newUserRepoMock(), orders, nil, nil)

	if _, err := svc.Get(context.Background(), "owner", created.OrderID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}

	if _, err := svc.Get(context.Background(), "intruder", created.OrderID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("foreign order must look absent, got %v", err)
	}
}

func TestOrderGetUnknown(t *testing.T) {
	svc := NewOrderService(newUserRepoMock(), newOrderRepoMock(), nil, nil)

	if _, err := svc.Get(context.Background(), "anyone", "KWT-2026-000001"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderCreateSnapshotsIdentity(t *testing.T) {
	username := "kiwifan"
	user := domainUser("user-1", "fan@example.com", "hash")
	user.Username = &username
	user.CreatedAt = time.Now().UTC().Add(-10 * 24 * time.Hour)

	users := newUserRepoMock()
	users.add(user)

	orders := newOrderRepoMock()
	svc := NewOrderService(users, orders, nil, nil)

	order, err := svc.Create(context.Background(), CreateOrderInput{
		UserID:     "user-1",
		ProductID:  "lifetime",
		LicenseKey: " AAAA-BBBB ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(order.OrderID, "KWT-") {
		t.Fatalf("order id %q missing prefix", order.OrderID)
	}
	if order.Email != "fan@example.com" || order.Username != "kiwifan" {
		t.Fatalf("identity not snapshotted: %+v", order)
	}
	if order.AccountAgeDays != 10 {
		t.Fatalf("account age = %d days, want 10", order.AccountAgeDays)
	}
	if order.AmountCents != 5999 || order.ProductName != "KiwiTweaks Lifetime" {
		t.Fatalf("catalog snapshot wrong: %+v", order)
	}
	if order.LicenseKey != "AAAA-BBBB" {
		t.Fatalf("license key not trimmed: %q", order.LicenseKey)
	}
}

func TestOrderCreateUnknownProduct(t *testing.T) {
	users := newUserRepoMock()
	users.add(domainUser("user-1", "fan@example.com", "hash"))

	svc := NewOrderService(users, newOrderRepoMock(), nil, nil)

	if _, err := svc.Create(context.Background(), CreateOrderInput{UserID: "user-1", ProductID: "mystery"}); !errors.Is(err, ErrProductUnknown) {
		t.Fatalf("expected ErrProductUnknown, got %v", err)
	}
}
