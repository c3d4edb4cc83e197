package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiwitweaks/commerce-api/internal/infra/security"
)

func TestVerificationServiceVerify(t *testing.T) {
	rawToken := "raw-verification-token"
	hash := security.HashToken(rawToken)
	expires := time.Now().UTC().Add(time.Hour)

	user := domainUser("user-1", "verify@example.com", "hash")
	user.VerificationTokenHash = &hash
	user.VerificationExpiresAt = &expires

	users := newUserRepoMock()
	users.add(user)

	svc := NewVerificationService(testConfig(), users, nil, nil, nil)

	if err := svc.Verify(context.Background(), rawToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(users.verifiedIDs) != 1 || users.verifiedIDs[0] != "user-1" {
		t.Fatalf("user not marked verified: %v", users.verifiedIDs)
	}
}

func TestVerificationServiceVerifyUnknownToken(t *testing.T) {
	svc := NewVerificationService(testConfig(), newUserRepoMock(), nil, nil, nil)

	if err := svc.Verify(context.Background(), "never-issued"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerificationServiceVerifyExpiredToken(t *testing.T) {
	rawToken := "expired-token"
	hash := security.HashToken(rawToken)
	expires := time.Now().UTC().Add(-time.Minute)

	user := domainUser("user-1", "late@example.com", "hash")
	user.VerificationTokenHash = &hash
	user.VerificationExpiresAt = &expires

	users := newUserRepoMock()
	users.add(user)

	svc := NewVerificationService(testConfig(), users, nil, nil, nil)

	if err := svc.Verify(context.Background(), rawToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if len(users.verifiedIDs) != 0 {
		t.Fatal("expired token marked the account verified")
	}
}

func TestVerificationServiceVerifyAlreadyVerified(t *testing.T) {
	rawToken := "stale-token"
	hash := security.HashToken(rawToken)
	expires := time.Now().UTC().Add(time.Hour)

	user := domainUser("user-1", "done@example.com", "hash")
	user.VerificationTokenHash = &hash
	user.VerificationExpiresAt = &expires
	user.EmailVerified = true

	users := newUserRepoMock()
	users.add(user)

	svc := NewVerificationService(testConfig(), users, nil, nil, nil)

	if err := svc.Verify(context.Background(), rawToken); !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("expected ErrEmailAlreadyVerified, got %v", err)
	}
}

func TestVerificationServiceResendReanchorsExpiry(t *testing.T) {
	user := domainUser("user-1", "resend@example.com", "hash")
	users := newUserRepoMock()
	users.add(user)

	mailer := &mailerMock{}
	renderer := &rendererMock{}
	svc := NewVerificationService(testConfig(), users, mailer, renderer, nil)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return base })

	if err := svc.Resend(context.Background(), "resend@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}

	if users.verifyTokenID != "user-1" {
		t.Fatal("verification token not replaced")
	}
	if !users.verifyExpires.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("expiry not re-anchored: %v", users.verifyExpires)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mailer.sent))
	}
}

func TestVerificationServiceResendUnknownEmailSilent(t *testing.T) {
	mailer := &mailerMock{}
	svc := NewVerificationService(testConfig(), newUserRepoMock(), mailer, &rendererMock{}, nil)

	if err := svc.Resend(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("resend should not reveal unknown email, got %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("email sent for unknown address")
	}
}

func TestVerificationServiceResendVerifiedSilent(t *testing.T) {
	user := domainUser("user-1", "settled@example.com", "hash")
	user.EmailVerified = true
	users := newUserRepoMock()
	users.add(user)

	mailer := &mailerMock{}
	svc := NewVerificationService(testConfig(), users, mailer, &rendererMock{}, nil)

	if err := svc.Resend(context.Background(), "settled@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if users.verifyTokenID != "" || len(mailer.sent) != 0 {
		t.Fatal("verified account got a new token or email")
	}
}
