package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository/memory"
)

// countingUserRepo tracks GetByID calls to observe cache behavior.
type countingUserRepo struct {
	port.UserRepository
	getByIDCalls int
}

func (c *countingUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	c.getByIDCalls++
	return c.UserRepository.GetByID(ctx, id)
}

func profileFixture(t *testing.T) (*ProfileService, *countingUserRepo, *cache.Loader) {
	t.Helper()

	licenseKey := "AAAA-BBBB-CCCC-DDDD"
	user := domainUser("user-1", "profile@example.com", "secret-hash")
	user.LicenseKey = &licenseKey
	user.IsPremium = true

	users := newUserRepoMock()
	users.add(user)
	counting := &countingUserRepo{UserRepository: users}

	purchases := newPurchaseRepoMock()
	purchases.add(domain.Purchase{
		ID:          "p-1",
		UserID:      "user-1",
		ProductID:   "premium",
		AmountCents: 2999,
		Currency:    "usd",
		Provider:    domain.ProviderStripe,
		ProviderRef: "cs_789",
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   time.Now().UTC(),
	})

	loader := cache.NewLoader(memory.NewCacheStore(), nil)
	svc := NewProfileService(testConfig(), counting, purchases, loader, nil)
	return svc, counting, loader
}

func TestProfileGetServesFromCache(t *testing.T) {
	svc, counting, _ := profileFixture(t)

	first, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	if counting.getByIDCalls != 1 {
		t.Fatalf("expected 1 repo hit, got %d", counting.getByIDCalls)
	}

	second, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if counting.getByIDCalls != 1 {
		t.Fatalf("cache miss on second get: %d repo hits", counting.getByIDCalls)
	}
	if second.Email != first.Email || second.LicenseKey != first.LicenseKey {
		t.Fatalf("cached profile differs: %+v vs %+v", second, first)
	}
}

func TestProfileGetRefetchesAfterInvalidation(t *testing.T) {
	svc, counting, loader := profileFixture(t)

	if _, err := svc.Get(context.Background(), "user-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	loader.Invalidate(context.Background(), cache.ProfileKey("user-1"))

	if _, err := svc.Get(context.Background(), "user-1"); err != nil {
		t.Fatalf("get after invalidation: %v", err)
	}
	if counting.getByIDCalls != 2 {
		t.Fatalf("expected refetch after invalidation, got %d repo hits", counting.getByIDCalls)
	}
}

func TestProfileNeverExposesSecrets(t *testing.T) {
	svc, _, _ := profileFixture(t)

	profile, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if profile.Email != "profile@example.com" || !profile.IsPremium {
		t.Fatalf("profile fields wrong: %+v", profile)
	}
	if len(profile.Purchases) != 1 || profile.Purchases[0].ProductID != "premium" {
		t.Fatalf("purchases missing: %+v", profile.Purchases)
	}
	// The Profile type carries no password or token fields at all; this
	// guards against someone adding them later with a JSON tag.
	if profile.LicenseKey != "AAAA-BBBB-CCCC-DDDD" {
		t.Fatalf("license key missing: %q", profile.LicenseKey)
	}
}
