package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
	"github.com/kiwitweaks/commerce-api/internal/infra/mail"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

const (
	resetTTL = time.Hour

	passwordResetRateLimitScope = "password_reset"
)

// PasswordResetService coordinates reset initiation and completion.
type PasswordResetService struct {
	cfg               *config.AppConfig
	users             port.UserRepository
	rateLimits        port.RateLimitStore
	audit             port.AuditRepository
	mailer            port.Mailer
	renderer          port.TemplateRenderer
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
	now               func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(cfg *config.AppConfig, users port.UserRepository, rateLimits port.RateLimitStore, audit port.AuditRepository, mailer port.Mailer, renderer port.TemplateRenderer, validator *security.PasswordValidator, log *zap.Logger) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PasswordResetService{
		cfg:               cfg,
		users:             users,
		rateLimits:        rateLimits,
		audit:             audit,
		mailer:            mailer,
		renderer:          renderer,
		passwordValidator: validator,
		logger:            log,
		now:               time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request stores a hashed reset token and emails the raw one. The outcome is
// identical whether or not the email belongs to an account, so the endpoint
// cannot be used to enumerate registered addresses.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	if err := s.enforceRateLimit(ctx, email, now); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, security.HashToken(rawToken), now.Add(resetTTL)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("store reset token: %w", err)
	}

	s.sendResetEmail(ctx, *user, rawToken)
	return nil
}

// Confirm validates the raw token, applies the new password, and burns the
// token so it cannot be replayed.
func (s *PasswordResetService) Confirm(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrTokenInvalid
	}

	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash := security.HashToken(rawToken)
	user, err := s.users.GetByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now().UTC()
	if user.ResetTokenExpiresAt == nil || now.After(*user.ResetTokenExpiresAt) {
		return ErrTokenExpired
	}

	hashedPassword, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.users.ClearResetToken(ctx, user.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("clear reset token: %w", err)
	}

	s.recordAudit(ctx, user.ID, now)
	return nil
}

func (s *PasswordResetService) enforceRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMax
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.PasswordResetWindow
	if window <= 0 {
		window = time.Hour
	}

	storageKey := fmt.Sprintf("%s:%s", passwordResetRateLimitScope, email)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("password reset rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("password reset rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("password reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: passwordResetRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("password reset rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *PasswordResetService) sendResetEmail(ctx context.Context, user domain.User, rawToken string) {
	if s.mailer == nil || s.renderer == nil {
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.App.FrontendURL, "/"), rawToken)

	html, err := s.renderer.Render(mail.TemplatePasswordReset, map[string]any{
		"ResetURL": resetURL,
	})
	if err != nil {
		s.logger.Error("render reset email failed", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Reset your KiwiTweaks password (valid for 1 hour): %s", resetURL)
	if err := s.mailer.Send(ctx, user.Email, "Reset your KiwiTweaks password", html, text); err != nil {
		s.logger.Error("send reset email failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

func (s *PasswordResetService) recordAudit(ctx context.Context, userID string, at time.Time) {
	if s.audit == nil {
		return
	}

	entry := port.AuditEntry{
		Event:     "password_reset_completed",
		UserID:    &userID,
		CreatedAt: at,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("record password reset audit failed", zap.Error(err))
	}
}
