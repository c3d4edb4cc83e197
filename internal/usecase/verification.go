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
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
	"github.com/kiwitweaks/commerce-api/internal/infra/mail"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

// VerificationService confirms email ownership.
type VerificationService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	mailer   port.Mailer
	renderer port.TemplateRenderer
	cache    *cache.Loader
	logger   *zap.Logger
	now      func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(cfg *config.AppConfig, users port.UserRepository, mailer port.Mailer, renderer port.TemplateRenderer, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationService{
		cfg:      cfg,
		users:    users,
		mailer:   mailer,
		renderer: renderer,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithProfileCache attaches the profile cache so verification drops the
// stale cached view.
func (s *VerificationService) WithProfileCache(loader *cache.Loader) *VerificationService {
	s.cache = loader
	return s
}

// Verify marks the account as verified when the raw token matches an
// unexpired stored hash.
func (s *VerificationService) Verify(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrTokenInvalid
	}

	hash := security.HashToken(rawToken)
	user, err := s.users.GetByVerificationTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	now := s.now().UTC()
	if user.VerificationExpiresAt == nil || now.After(*user.VerificationExpiresAt) {
		return ErrTokenExpired
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("mark email verified: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(user.ID))
	}

	return nil
}

// Resend issues a fresh verification token with a re-anchored expiry window.
// Unknown and already-verified emails return success without sending, so the
// endpoint does not leak which addresses hold accounts.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return nil
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.SetVerificationToken(ctx, user.ID, security.HashToken(rawToken), now.Add(verificationTTL)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("store verification token: %w", err)
	}

	s.sendVerificationEmail(ctx, *user, rawToken)
	return nil
}

func (s *VerificationService) sendVerificationEmail(ctx context.Context, user domain.User, rawToken string) {
	if s.mailer == nil || s.renderer == nil {
		return
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.cfg.App.FrontendURL, "/"), rawToken)
	username := user.Email
	if user.Username != nil && *user.Username != "" {
		username = *user.Username
	}

	html, err := s.renderer.Render(mail.TemplateVerification, map[string]any{
		"Username":  username,
		"VerifyURL": verifyURL,
	})
	if err != nil {
		s.logger.Error("render verification email failed", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Verify your KiwiTweaks email: %s", verifyURL)
	if err := s.mailer.Send(ctx, user.Email, "Verify your KiwiTweaks account", html, text); err != nil {
		s.logger.Error("send verification email failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}
