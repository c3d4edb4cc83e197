package domain

import "time"

// UserRegisteredEvent is emitted after a new account is persisted.
type UserRegisteredEvent struct {
	UserID       string
	Email        string
	Username     string
	RegisteredAt time.Time
	Metadata     map[string]string
}

// OrderCompletedEvent is emitted once a payment is validated, deduplicated,
// and persisted.
type OrderCompletedEvent struct {
	OrderID     string
	UserID      string
	ProductID   string
	AmountCents int64
	Currency    string
	Provider    PaymentProvider
	ProviderRef string
	CompletedAt time.Time
	Metadata    map[string]string
}

// LicenseIssuedEvent is emitted when a license key is generated for a purchase.
type LicenseIssuedEvent struct {
	UserID    string
	ProductID string
	OrderID   string
	IssuedAt  time.Time
	Metadata  map[string]string
}

// SecurityAlertEvent records webhook signature failures, price tampering
// attempts, and similar events for the audit pipeline.
type SecurityAlertEvent struct {
	Kind       string
	Provider   string
	Reference  string
	Detail     string
	OccurredAt time.Time
	Metadata   map[string]string
}
