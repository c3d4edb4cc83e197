package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
)

func TestLicenseGenerateRequiresCompletedPurchase(t *testing.T) {
	users := newUserRepoMock()
	users.add(domainUser("user-1", "nolicense@example.com", "hash"))

	svc := NewLicenseService(users, newPurchaseRepoMock(), newLicenseProviderMock(), nil, nil)

	if _, err := svc.Generate(context.Background(), "user-1"); !errors.Is(err, ErrLicenseNotOwed) {
		t.Fatalf("expected ErrLicenseNotOwed, got %v", err)
	}
}

func TestLicenseGenerateIssuesAndRegisters(t *testing.T) {
	users := newUserRepoMock()
	users.add(domainUser("user-1", "owner@example.com", "hash"))

	purchases := newPurchaseRepoMock()
	purchases.add(domain.Purchase{
		ID:          "p-1",
		UserID:      "user-1",
		ProductID:   "premium",
		Provider:    domain.ProviderStripe,
		ProviderRef: "cs_123",
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	})

	provider := newLicenseProviderMock()
	events := &eventPublisherMock{}
	svc := NewLicenseService(users, purchases, provider, events, nil)

	key, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if key == "" {
		t.Fatal("empty license key")
	}
	if provider.registered[key] != "premium" {
		t.Fatal("key not registered with provider")
	}
	if users.licenseByID["user-1"] != key {
		t.Fatal("key not stored on the account")
	}
	if len(events.issued) != 1 {
		t.Fatal("license issued event not published")
	}
}

func TestLicenseGenerateIdempotent(t *testing.T) {
	existing := "AAAA-BBBB-CCCC-DDDD"
	user := domainUser("user-1", "repeat@example.com", "hash")
	user.LicenseKey = &existing

	users := newUserRepoMock()
	users.add(user)

	provider := newLicenseProviderMock()
	svc := NewLicenseService(users, newPurchaseRepoMock(), provider, nil, nil)

	key, err := svc.Generate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if key != existing {
		t.Fatalf("expected existing key back, got %q", key)
	}
	if len(provider.registered) != 0 {
		t.Fatal("re-registered a key that already exists")
	}
}

func TestLicenseGenerateProviderFailureIsFatal(t *testing.T) {
	users := newUserRepoMock()
	users.add(domainUser("user-1", "unlucky@example.com", "hash"))

	purchases := newPurchaseRepoMock()
	purchases.add(domain.Purchase{
		ID:          "p-1",
		UserID:      "user-1",
		ProductID:   "basic",
		Provider:    domain.ProviderStripe,
		ProviderRef: "cs_456",
		Status:      domain.PurchaseStatusCompleted,
	})

	provider := newLicenseProviderMock()
	provider.registerErr = port.ErrLicensingUnavailable

	svc := NewLicenseService(users, purchases, provider, nil, nil)

	if _, err := svc.Generate(context.Background(), "user-1"); !errors.Is(err, port.ErrLicensingUnavailable) {
		t.Fatalf("expected provider error surfaced, got %v", err)
	}
	if users.licenseByID["user-1"] != "" {
		t.Fatal("key granted despite provider failure")
	}
}

func TestLicenseVerifyBindsHWID(t *testing.T) {
	users := newUserRepoMock()
	users.add(domainUser("user-1", "gamer@example.com", "hash"))

	provider := newLicenseProviderMock()
	provider.status = &port.LicenseStatus{Valid: true, ExpiresAt: "2027-01-01"}

	svc := NewLicenseService(users, newPurchaseRepoMock(), provider, nil, nil)

	result, err := svc.Verify(context.Background(), "AAAA-BBBB", "user-1", "HWID-42")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid || !result.HWIDBound {
		t.Fatalf("expected valid bound result, got %+v", result)
	}
	if provider.bound["AAAA-BBBB"] != "HWID-42" {
		t.Fatal("hwid not bound with provider")
	}
	if users.hwidByID["user-1"] != "HWID-42" {
		t.Fatal("hwid not stored on account")
	}
}

func TestLicenseVerifyAnonymousSkipsBinding(t *testing.T) {
	provider := newLicenseProviderMock()
	svc := NewLicenseService(newUserRepoMock(), newPurchaseRepoMock(), provider, nil, nil)

	result, err := svc.Verify(context.Background(), "AAAA-BBBB", "", "HWID-42")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.HWIDBound {
		t.Fatal("anonymous caller bound a hwid")
	}
	if len(provider.bound) != 0 {
		t.Fatal("provider bind called without a user")
	}
}

func TestLicenseVerifyInvalidKey(t *testing.T) {
	provider := newLicenseProviderMock()
	provider.verifyErr = port.ErrLicenseInvalid

	svc := NewLicenseService(newUserRepoMock(), newPurchaseRepoMock(), provider, nil, nil)

	result, err := svc.Verify(context.Background(), "BOGUS", "", "")
	if err != nil {
		t.Fatalf("invalid key should not error, got %v", err)
	}
	if result.Valid {
		t.Fatal("invalid key reported valid")
	}
}
