package domain

import "time"

// OrderStatus enumerates the lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Order is a denormalized, human-readable record of a sale. Identity and
// account-age fields are snapshotted at order time and never updated; only
// the status may transition afterwards.
type Order struct {
	ID             string
	OrderID        string // KWT-<year>-<sequence>
	UserID         string
	Email          string
	Username       string
	AccountAgeDays int
	ProductID      string
	ProductName    string
	AmountCents    int64
	Currency       string
	LicenseKey     string
	Status         OrderStatus
	CreatedAt      time.Time
}
