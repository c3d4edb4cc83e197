package port

import (
	"context"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
	SetHWID(ctx context.Context, id string, hwid string) error
	GrantLicense(ctx context.Context, id string, licenseKey string) error
	// UpsertByEmail creates the user if the email is unknown and returns the
	// stored row either way. Used by payment webhooks, which may arrive for
	// customers without an account yet.
	UpsertByEmail(ctx context.Context, user domain.User) (*domain.User, error)
}
