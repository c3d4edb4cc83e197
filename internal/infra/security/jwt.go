package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its
	// signature did not verify.
	ErrInvalidSessionToken = errors.New("jwt: invalid session token")
	// ErrExpiredSessionToken indicates the token was valid but has expired.
	ErrExpiredSessionToken = errors.New("jwt: session token expired")
)

const defaultSessionTokenTTL = 7 * 24 * time.Hour

// SessionClaims carries the account identity inside a session token.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager validates the signing secret and builds a TokenManager.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTokenTTL
	}

	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Issue signs a session token for the given account.
func (m *TokenManager) Issue(userID, email string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := m.now().UTC()
	claims := SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a session token. Malformed input is reported
// through the sentinel errors; this function never panics.
func (m *TokenManager) Verify(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidSessionToken
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSessionToken
		}
		return nil, ErrInvalidSessionToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidSessionToken
	}

	return claims, nil
}
