package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/cache"
	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// LicenseService issues and verifies license keys against the external
// licensing provider.
type LicenseService struct {
	users     port.UserRepository
	purchases port.PurchaseRepository
	provider  port.LicenseProvider
	events    port.EventPublisher
	cache     *cache.Loader
	logger    *zap.Logger
	now       func() time.Time
}

// LicenseVerification reports a verification outcome, including whether a
// hardware id was bound during the call.
type LicenseVerification struct {
	Valid     bool
	ExpiresAt string
	HWIDBound bool
}

// NewLicenseService constructs a LicenseService.
func NewLicenseService(users port.UserRepository, purchases port.PurchaseRepository, provider port.LicenseProvider, events port.EventPublisher, log *zap.Logger) *LicenseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LicenseService{
		users:     users,
		purchases: purchases,
		provider:  provider,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithProfileCache attaches the profile cache so license grants drop the
// stale cached view.
func (s *LicenseService) WithProfileCache(loader *cache.Loader) *LicenseService {
	s.cache = loader
	return s
}

// Generate issues a license key for an account with a completed purchase.
// Idempotent: an account that already holds a key gets the same key back.
func (s *LicenseService) Generate(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if user.LicenseKey != nil && *user.LicenseKey != "" {
		return *user.LicenseKey, nil
	}

	purchases, err := s.purchases.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list purchases: %w", err)
	}

	var productID string
	for _, p := range purchases {
		if p.Status == domain.PurchaseStatusCompleted {
			productID = p.ProductID
			break
		}
	}
	if productID == "" {
		return "", ErrLicenseNotOwed
	}

	key, err := security.GenerateLicenseKey()
	if err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}

	if s.provider != nil {
		if err := s.provider.RegisterKey(ctx, key, productID); err != nil {
			return "", fmt.Errorf("register license key: %w", err)
		}
	}

	if err := s.users.GrantLicense(ctx, userID, key); err != nil {
		return "", fmt.Errorf("grant license: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(userID))
	}

	if s.events != nil {
		event := domain.LicenseIssuedEvent{
			UserID:    userID,
			ProductID: productID,
			IssuedAt:  s.now().UTC(),
		}
		if err := s.events.PublishLicenseIssued(ctx, event); err != nil {
			s.logger.Warn("publish license issued event failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return key, nil
}

// Verify checks a key with the provider. When the caller is authenticated
// and supplies a hardware id, the id is bound to the key and stored on the
// account.
func (s *LicenseService) Verify(ctx context.Context, key string, userID string, hwid string) (*LicenseVerification, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("license key is required")
	}

	status, err := s.provider.VerifyKey(ctx, key)
	if err != nil {
		if errors.Is(err, port.ErrLicenseInvalid) {
			return &LicenseVerification{Valid: false}, nil
		}
		return nil, fmt.Errorf("verify license key: %w", err)
	}

	result := &LicenseVerification{
		Valid:     status.Valid,
		ExpiresAt: status.ExpiresAt,
	}

	hwid = strings.TrimSpace(hwid)
	if status.Valid && userID != "" && hwid != "" {
		if err := s.provider.BindHWID(ctx, key, hwid); err != nil {
			s.logger.Error("bind hwid with provider failed", zap.String("user_id", userID), zap.Error(err))
			return result, nil
		}
		if err := s.users.SetHWID(ctx, userID, hwid); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("store hwid: %w", err)
		}
		result.HWIDBound = true
	}

	return result, nil
}
