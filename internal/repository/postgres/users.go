package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiwitweaks/commerce-api/internal/core/domain"
	"github.com/kiwitweaks/commerce-api/internal/core/port"
	"github.com/kiwitweaks/commerce-api/internal/repository"
)

var userColumns = []string{
	"id",
	"email",
	"username",
	"password_hash",
	"email_verified",
	"verification_token_hash",
	"verification_expires_at",
	"reset_token_hash",
	"reset_token_expires_at",
	"hwid",
	"license_key",
	"is_premium",
	"created_at",
	"last_login",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.VerificationTokenHash,
		&user.VerificationExpiresAt,
		&user.ResetTokenHash,
		&user.ResetTokenExpiresAt,
		&user.HWID,
		&user.LicenseKey,
		&user.IsPremium,
		&user.CreatedAt,
		&user.LastLogin,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	query := r.builder.Insert("kwt.users").
		Columns(
			"id",
			"email",
			"username",
			"password_hash",
			"email_verified",
			"verification_token_hash",
			"verification_expires_at",
			"is_premium",
			"created_at",
		).
		Values(
			user.ID,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.EmailVerified,
			user.VerificationTokenHash,
			user.VerificationExpiresAt,
			user.IsPremium,
			user.CreatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("kwt.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves a user by normalized email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("kwt.users").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByResetTokenHash retrieves the user holding an unexpired reset token.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("kwt.users").
		Where(squirrel.Eq{"reset_token_hash": hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by reset token sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByVerificationTokenHash retrieves the user holding a verification token.
func (r *UserRepository) GetByVerificationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("kwt.users").
		Where(squirrel.Eq{"verification_token_hash": hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by verification token sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateLastLogin stamps the most recent successful authentication.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("password_hash", passwordHash).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetResetToken stores the hashed reset token and its expiry, replacing any
// previous one.
func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("reset_token_hash", tokenHash).
		Set("reset_token_expires_at", expiresAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ClearResetToken invalidates any outstanding reset token.
func (r *UserRepository) ClearResetToken(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("reset_token_hash", nil).
		Set("reset_token_expires_at", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear reset token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetVerificationToken stores the hashed email verification token, replacing
// any previous one and re-anchoring the expiry.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("verification_token_hash", tokenHash).
		Set("verification_expires_at", expiresAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verification token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkEmailVerified flips the verified flag and discards the token.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("email_verified", true).
		Set("verification_token_hash", nil).
		Set("verification_expires_at", nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark email verified sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetHWID binds a hardware identifier to the account.
func (r *UserRepository) SetHWID(ctx context.Context, id string, hwid string) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("hwid", hwid).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set hwid sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set hwid: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GrantLicense stores the license key and raises the premium flag.
func (r *UserRepository) GrantLicense(ctx context.Context, id string, licenseKey string) error {
	stmt, args, err := r.builder.Update("kwt.users").
		Set("license_key", licenseKey).
		Set("is_premium", true).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build grant license sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("grant license: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpsertByEmail inserts a user keyed by email, returning the existing row on
// conflict. Webhooks use this to attach purchases to customers who paid
// before registering.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user domain.User) (*domain.User, error) {
	query := r.builder.Insert("kwt.users").
		Columns(
			"id",
			"email",
			"username",
			"password_hash",
			"email_verified",
			"is_premium",
			"created_at",
		).
		Values(
			user.ID,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.EmailVerified,
			user.IsPremium,
			user.CreatedAt,
		).
		Suffix("ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email").
		Suffix(fmt.Sprintf("RETURNING %s", columnList(userColumns)))

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert user sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

var _ port.UserRepository = (*UserRepository)(nil)
