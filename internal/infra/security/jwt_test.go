package security

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenManager(t *testing.T, ttl time.Duration) *TokenManager {
	t.Helper()
	manager, err := NewTokenManager("unit-test-signing-secret", "kiwitweaks", ttl)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	return manager
}

func TestTokenManagerRoundTrip(t *testing.T) {
	manager := newTestTokenManager(t, time.Hour)

	token, err := manager.Issue("user-1", "person@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "person@example.com" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.Issuer != "kiwitweaks" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestTokenManagerRejectsTamperedToken(t *testing.T) {
	manager := newTestTokenManager(t, time.Hour)

	token, err := manager.Issue("user-1", "person@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := manager.Verify(tampered); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
	}
}

func TestTokenManagerRejectsForeignSecret(t *testing.T) {
	issuedBy := newTestTokenManager(t, time.Hour)
	verifier, err := NewTokenManager("a-different-signing-secret", "kiwitweaks", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}

	token, err := issuedBy.Issue("user-1", "person@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
	}
}

func TestTokenManagerExpiry(t *testing.T) {
	manager := newTestTokenManager(t, time.Minute)

	issuedAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	current := issuedAt
	manager.WithClock(func() time.Time { return current })

	token, err := manager.Issue("user-1", "person@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Verify(token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}

	current = issuedAt.Add(2 * time.Minute)
	if _, err := manager.Verify(token); !errors.Is(err, ErrExpiredSessionToken) {
		t.Fatalf("expected ErrExpiredSessionToken, got %v", err)
	}
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	manager := newTestTokenManager(t, time.Hour)

	for _, input := range []string{"", "   ", "not-a-jwt", "a.b"} {
		if _, err := manager.Verify(input); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidSessionToken", input, err)
		}
	}
}
