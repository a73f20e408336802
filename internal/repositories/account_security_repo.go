package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
)

// AccountSecurityRepository handles database operations for lockout state
type AccountSecurityRepository struct {
	db *database.DB
}

// NewAccountSecurityRepository creates a new AccountSecurityRepository
func NewAccountSecurityRepository(db *database.DB) *AccountSecurityRepository {
	return &AccountSecurityRepository{db: db}
}

// GetByIdentity returns the lockout record for an identity, or models.ErrNotFound
func (r *AccountSecurityRepository) GetByIdentity(ctx context.Context, identity string) (*models.AccountSecurity, error) {
	query := `
		SELECT identity, failed_login_attempts, locked_until, last_failed_login, updated_at
		FROM account_security
		WHERE identity = $1
	`

	var record models.AccountSecurity
	err := r.db.Pool.QueryRow(ctx, query, identity).Scan(
		&record.Identity,
		&record.FailedLoginAttempts,
		&record.LockedUntil,
		&record.LastFailedLogin,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &record, nil
}

// IncrementFailedAttempts bumps the failure counter in a single statement and returns the new state.
// A lock that has already expired at now is discarded and counting restarts at 1.
// Reaching threshold sets locked_until in the same statement, so a counter at the
// threshold is never left without a lock.
func (r *AccountSecurityRepository) IncrementFailedAttempts(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
	query := `
		INSERT INTO account_security (identity, failed_login_attempts, locked_until, last_failed_login, updated_at)
		VALUES ($1, 1, CASE WHEN 1 >= $3::int THEN $4::timestamptz END, $2, $2)
		ON CONFLICT (identity) DO UPDATE SET
			failed_login_attempts = CASE
				WHEN account_security.locked_until IS NOT NULL AND account_security.locked_until <= $2 THEN 1
				ELSE account_security.failed_login_attempts + 1
			END,
			locked_until = CASE
				WHEN account_security.locked_until IS NOT NULL AND account_security.locked_until <= $2 THEN
					CASE WHEN 1 >= $3::int THEN $4::timestamptz END
				WHEN account_security.failed_login_attempts + 1 >= $3::int THEN $4::timestamptz
				ELSE account_security.locked_until
			END,
			last_failed_login = $2,
			updated_at = $2
		RETURNING identity, failed_login_attempts, locked_until, last_failed_login, updated_at
	`

	var record models.AccountSecurity
	err := r.db.Pool.QueryRow(ctx, query, identity, now, threshold, lockedUntil).Scan(
		&record.Identity,
		&record.FailedLoginAttempts,
		&record.LockedUntil,
		&record.LastFailedLogin,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &record, nil
}

// ClearExpiredLock resets the counter and lock, but only while the lock is still expired at now.
// Returns false when another writer got there first.
func (r *AccountSecurityRepository) ClearExpiredLock(ctx context.Context, identity string, now time.Time) (bool, error) {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE identity = $1 AND locked_until IS NOT NULL AND locked_until <= $2
	`

	result, err := r.db.Pool.Exec(ctx, query, identity, now)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

// Reset zeroes the counter and clears the lock and last failure. Missing identities are a no-op.
func (r *AccountSecurityRepository) Reset(ctx context.Context, identity string, now time.Time) error {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, last_failed_login = NULL, updated_at = $2
		WHERE identity = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, identity, now)
	return database.MapPostgresError(err)
}

// Unlock zeroes the counter and clears the lock, keeping the last failure time
func (r *AccountSecurityRepository) Unlock(ctx context.Context, identity string, now time.Time) error {
	query := `
		UPDATE account_security
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE identity = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, identity, now)
	return database.MapPostgresError(err)
}
