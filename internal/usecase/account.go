package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/infra/config"
	"github.com/kiwitweaks/commerce-api/internal/infra/logger"
	"github.com/kiwitweaks/commerce-api/internal/infra/mail"
	"github.com/kiwitweaks/commerce-api/internal/infra/security"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

const verificationTTL = 24 * time.Hour

// AccountService handles registration and login.
type AccountService struct {
	cfg               *config.AppConfig
	users             port.UserRepository
	tokens            *security.TokenManager
	passwordValidator *security.PasswordValidator
	mailer            port.Mailer
	renderer          port.TemplateRenderer
	events            port.EventPublisher
	logger            *zap.Logger
	now               func() time.Time
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput carries a credential check request.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by both registration and login.
type AuthResult struct {
	User  *domain.User
	Token string
}

// NewAccountService constructs an AccountService.
func NewAccountService(cfg *config.AppConfig, users port.UserRepository, tokens *security.TokenManager, validator *security.PasswordValidator, mailer port.Mailer, renderer port.TemplateRenderer, events port.EventPublisher, log *zap.Logger) *AccountService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &AccountService{
		cfg:               cfg,
		users:             users,
		tokens:            tokens,
		passwordValidator: validator,
		mailer:            mailer,
		renderer:          renderer,
		events:            events,
		logger:            log,
		now:               time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AccountService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register creates the account, issues a session token, and sends the
// verification email. Email delivery is best-effort.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	password := strings.TrimSpace(input.Password)
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hashed, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	now := s.now().UTC()
	tokenHash := security.HashToken(rawToken)
	expiresAt := now.Add(verificationTTL)

	user := domain.User{
		ID:                    uuid.NewString(),
		Email:                 email,
		PasswordHash:          hashed,
		VerificationTokenHash: &tokenHash,
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
	}
	if username := strings.TrimSpace(input.Username); username != "" {
		user.Username = &username
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.sendVerificationEmail(ctx, user, rawToken)
	s.publishRegisteredEvent(ctx, user)

	return &AuthResult{User: &user, Token: token}, nil
}

// Login verifies credentials, stamps last login, and issues a session token.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	matches, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !matches {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) sendVerificationEmail(ctx context.Context, user domain.User, rawToken string) {
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

	text := fmt.Sprintf("Welcome to KiwiTweaks! Verify your email: %s", verifyURL)
	if err := s.mailer.Send(ctx, user.Email, "Verify your KiwiTweaks account", html, text); err != nil {
		s.logger.Error("send verification email failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

func (s *AccountService) publishRegisteredEvent(ctx context.Context, user domain.User) {
	if s.events == nil {
		return
	}

	event := domain.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		RegisteredAt: user.CreatedAt,
	}
	if user.Username != nil {
		event.Username = *user.Username
	}

	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
