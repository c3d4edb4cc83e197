package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiwitweaks/commerce-api/internal/core/port"
)

// AuditRepository implements port.AuditRepository using PostgreSQL.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Record appends an audit entry. Detail is serialized to JSONB.
func (r *AuditRepository) Record(ctx context.Context, entry port.AuditEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var detail any
	if len(entry.Detail) > 0 {
		bytes, err := json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = bytes
	}

	stmt, args, err := r.builder.Insert("kwt.audit_log").
		Columns("id", "event", "user_id", "detail", "created_at").
		Values(id, entry.Event, entry.UserID, detail, createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// DeleteOlderThan removes audit rows past the retention cutoff.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("kwt.audit_log").
		Where(squirrel.Lt{"created_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete audit entries sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}

	return ct.RowsAffected(), nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
