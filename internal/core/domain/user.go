package domain

import "time"

// User mirrors the persisted representation in the users table.
// Token columns hold SHA-256 hashes; the raw values are only ever
// sent to the customer.
type User struct {
	ID                    string
	Email                 string
	Username              *string
	PasswordHash          string
	EmailVerified         bool
	VerificationTokenHash *string
	VerificationExpiresAt *time.Time
	ResetTokenHash        *string
	ResetTokenExpiresAt   *time.Time
	HWID                  *string
	LicenseKey            *string
	IsPremium             bool
	CreatedAt             time.Time
	LastLogin             *time.Time
}

// AccountAgeDays reports full days since account creation, as snapshotted
// into orders.
func (u User) AccountAgeDays(now time.Time) int {
	if u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}

// PurchaseStatus enumerates states of a purchase record.
type PurchaseStatus string

const (
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
)

// PaymentProvider identifies the upstream payment processor.
type PaymentProvider string

const (
	ProviderStripe PaymentProvider = "stripe"
	ProviderPayPal PaymentProvider = "paypal"
)

// Purchase is an append-only record of a paid checkout, keyed for
// idempotency by the provider correlation id (Stripe session id or PayPal
// order id).
type Purchase struct {
	ID          string
	UserID      string
	ProductID   string
	LicenseKey  string
	AmountCents int64
	Currency    string
	Provider    PaymentProvider
	ProviderRef string
	Status      PurchaseStatus
	CreatedAt   time.Time
}
