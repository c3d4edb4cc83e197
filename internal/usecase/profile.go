package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// Profile is the sanitized, cacheable view of an account. It never carries
// the password hash or any token material.
type Profile struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Username      string            `json:"username,omitempty"`
	EmailVerified bool              `json:"email_verified"`
	IsPremium     bool              `json:"is_premium"`
	LicenseKey    string            `json:"license_key,omitempty"`
	HWID          string            `json:"hwid,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastLogin     *time.Time        `json:"last_login,omitempty"`
	Purchases     []ProfilePurchase `json:"purchases"`
}

// ProfilePurchase is the purchase summary embedded in a profile.
type ProfilePurchase struct {
	ProductID   string    `json:"product_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileService serves read-through cached profiles.
type ProfileService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	purchases port.PurchaseRepository
	cache     *cache.Loader
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(cfg *config.AppConfig, users port.UserRepository, purchases port.PurchaseRepository, cacheLoader *cache.Loader, log *zap.Logger) *ProfileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
		cfg:       cfg,
		users:     users,
		purchases: purchases,
		cache:     cacheLoader,
		logger:    log,
	}
}

// Get returns the profile, serving from cache within the TTL. A cache
// backend failure degrades to a direct fetch.
func (s *ProfileService) Get(ctx context.Context, userID string) (*Profile, error) {
	fetch := func(ctx context.Context) (any, error) {
		return s.load(ctx, userID)
	}

	if s.cache == nil {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return value.(*Profile), nil
	}

	var profile Profile
	if err := s.cache.GetOrSet(ctx, cache.ProfileKey(userID), s.profileTTL(), &profile, fetch); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Invalidate drops the cached profile after a mutation.
func (s *ProfileService) Invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(userID))
	}
}

func (s *ProfileService) load(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	return buildProfile(user, purchases), nil
}

func (s *ProfileService) profileTTL() time.Duration {
	if s.cfg != nil && s.cfg.Cache.ProfileTTL > 0 {
		return s.cfg.Cache.ProfileTTL
	}
	return 5 * time.Minute
}

func buildProfile(user *domain.User, purchases []domain.Purchase) *Profile {
	profile := &Profile{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		IsPremium:     user.IsPremium,
		CreatedAt:     user.CreatedAt,
		LastLogin:     user.LastLogin,
		Purchases:     make([]ProfilePurchase, 0, len(purchases)),
	}
	if user.Username != nil {
		profile.Username = *user.Username
	}
	if user.LicenseKey != nil {
		profile.LicenseKey = *user.LicenseKey
	}
	if user.HWID != nil {
		profile.HWID = *user.HWID
	}

	for _, p := range purchases {
		profile.Purchases = append(profile.Purchases, ProfilePurchase{
			ProductID:   p.ProductID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Provider:    string(p.Provider),
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
		})
	}

	return profile
}
