package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
)

const accountSecurityColumns = `identity, failed_login_attempts, locked_until, last_failed_login, updated_at`

// AccountSecurityRepository handles SQLite operations for lockout state
type AccountSecurityRepository struct {
	db *sql.DB
}

// NewAccountSecurityRepository creates a new AccountSecurityRepository
func NewAccountSecurityRepository(db *sql.DB) *AccountSecurityRepository {
	return &AccountSecurityRepository{db: db}
}

// GetByIdentity returns the lockout record for an identity, or models.ErrNotFound
func (r *AccountSecurityRepository) GetByIdentity(ctx context.Context, identity string) (*models.AccountSecurity, error) {
	query := `SELECT ` + accountSecurityColumns + ` FROM account_security WHERE identity = ?`
	return scanAccountSecurity(r.db.QueryRowContext(ctx, query, identity))
}

// IncrementFailedAttempts is a single UPSERT ... RETURNING, so concurrent failures never share a count.
// The lock is written by the same statement once the new count reaches threshold.
func (r *AccountSecurityRepository) IncrementFailedAttempts(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
	query := `
		INSERT INTO account_security (identity, failed_login_attempts, locked_until, last_failed_login, updated_at)
		VALUES (?1, 1, CASE WHEN 1 >= ?3 THEN ?4 END, ?2, ?2)
		ON CONFLICT (identity) DO UPDATE SET
			failed_login_attempts = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= ?2 THEN 1
				ELSE failed_login_attempts + 1
			END,
			locked_until = CASE
				WHEN locked_until IS NOT NULL AND locked_until <= ?2 THEN
					CASE WHEN 1 >= ?3 THEN ?4 END
				WHEN failed_login_attempts + 1 >= ?3 THEN ?4
				ELSE locked_until
			END,
			last_failed_login = excluded.last_failed_login,
			updated_at = excluded.updated_at
		RETURNING ` + accountSecurityColumns

	return scanAccountSecurity(r.db.QueryRowContext(ctx, query, identity, toMillis(now), threshold, toMillis(lockedUntil)))
}

// ClearExpiredLock resets the counter and lock, but only while the lock is still expired at now
func (r *AccountSecurityRepository) ClearExpiredLock(ctx context.Context, identity string, now time.Time) (bool, error) {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
		WHERE identity = ? AND locked_until IS NOT NULL AND locked_until <= ?
	`

	ms := toMillis(now)
	result, err := r.db.ExecContext(ctx, query, ms, identity, ms)
	if err != nil {
		return false, database.MapSQLiteError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// Reset zeroes the counter and clears the lock and last failure. Missing identities are a no-op.
func (r *AccountSecurityRepository) Reset(ctx context.Context, identity string, now time.Time) error {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, last_failed_login = NULL, updated_at = ?
		WHERE identity = ?
	`

	_, err := r.db.ExecContext(ctx, query, toMillis(now), identity)
	return database.MapSQLiteError(err)
}

// Unlock zeroes the counter and clears the lock, keeping the last failure time
func (r *AccountSecurityRepository) Unlock(ctx context.Context, identity string, now time.Time) error {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
		WHERE identity = ?
	`

	_, err := r.db.ExecContext(ctx, query, toMillis(now), identity)
	return database.MapSQLiteError(err)
}

func scanAccountSecurity(row *sql.Row) (*models.AccountSecurity, error) {
	var (
		record          models.AccountSecurity
		lockedUntil     sql.NullInt64
		lastFailedLogin sql.NullInt64
		updatedAt       int64
	)

	err := row.Scan(&record.Identity, &record.FailedLoginAttempts, &lockedUntil, &lastFailedLogin, &updatedAt)
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}

	record.LockedUntil = fromNullMillis(lockedUntil)
	record.LastFailedLogin = fromNullMillis(lastFailedLogin)
	record.UpdatedAt = fromMillis(updatedAt)

	return &record, nil
}
