package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/google/uuid"
)

// FailedLoginRepository handles SQLite operations for the failed login audit log
type FailedLoginRepository struct {
	db *sql.DB
}

// NewFailedLoginRepository creates a new FailedLoginRepository
func NewFailedLoginRepository(db *sql.DB) *FailedLoginRepository {
	return &FailedLoginRepository{db: db}
}

// RecordAttempt appends an audit entry, assigning an id when missing
func (r *FailedLoginRepository) RecordAttempt(ctx context.Context, attempt *models.FailedLoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO failed_login_attempts (id, identity, client_address, reason, attempted_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.Identity,
		attempt.ClientAddress,
		attempt.Reason,
		toMillis(attempt.AttemptedAt),
	)

	return database.MapSQLiteError(err)
}

// DeleteOlderThan removes entries attempted before cutoff
func (r *FailedLoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM failed_login_attempts WHERE attempted_at < ?`, ceilMillis(cutoff))
	if err != nil {
		return 0, database.MapSQLiteError(err)
	}

	return result.RowsAffected()
}

// CountByIdentity is used by tests and operators inspecting the audit trail
func (r *FailedLoginRepository) CountByIdentity(ctx context.Context, identity string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM failed_login_attempts WHERE identity = ?`, identity).Scan(&count)
	if err != nil {
		return 0, database.MapSQLiteError(err)
	}
	return count, nil
}
