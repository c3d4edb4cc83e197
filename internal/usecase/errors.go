package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrWeakPassword indicates the password failed strength validation.
	ErrWeakPassword = errors.New("password does not meet requirements")
	// ErrTokenInvalid indicates a reset or verification token that does not
	// match any account or was already consumed.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token matched but its window has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrEmailAlreadyVerified indicates a redundant verification attempt.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrOrderNotFound indicates the order does not exist or belongs to
	// another account.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductUnknown indicates an unrecognized catalog product id.
	ErrProductUnknown = errors.New("unknown product")
	// ErrPaymentIncomplete indicates the provider did not report the payment
	// as completed.
	ErrPaymentIncomplete = errors.New("payment not completed")
	// ErrLicenseNotOwed indicates the account has no completed purchase to
	// issue a license against.
	ErrLicenseNotOwed = errors.New("no purchase eligible for a license")
)

// RateLimitExceededError reports a per-identifier limit hit inside a usecase,
// carrying the retry hint surfaced in the Retry-After header.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}
