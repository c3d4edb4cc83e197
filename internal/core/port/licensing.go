package port

import (
	"context"
	"errors"
)

var (
	// ErrLicenseInvalid indicates the licensing provider rejected the key.
	ErrLicenseInvalid = errors.New("licensing: license key invalid")
	// ErrLicensingUnavailable indicates the provider could not be reached
	// within the configured timeout and retry budget.
	ErrLicensingUnavailable = errors.New("licensing: provider unavailable")
)

// LicenseStatus describes a key as reported by the licensing provider.
type LicenseStatus struct {
	Key       string
	Valid     bool
	ExpiresAt string
	HWID      string
}

// LicenseProvider wraps the external licensing service (KeyAuth).
type LicenseProvider interface {
	// RegisterKey records a locally generated key with the provider so the
	// desktop client can activate against it.
	RegisterKey(ctx context.Context, key string, productID string) error
	VerifyKey(ctx context.Context, key string) (*LicenseStatus, error)
	BindHWID(ctx context.Context, key string, hwid string) error
}
