package port

import (
	"context"
	"time"
)

// AuditEntry is a single audit-log row. Detail is stored as JSON.
type AuditEntry struct {
	ID        string
	Event     string
	UserID    *string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditRepository records security-relevant events with bounded retention.
type AuditRepository interface {
	Record(ctx context.Context, entry AuditEntry) error
	// DeleteOlderThan enforces the retention window and returns the number
	// of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
