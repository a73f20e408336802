package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/google/uuid"
)

// FailedLoginRepository appends failed login audit entries
type FailedLoginRepository struct {
	db *database.DB
}

// NewFailedLoginRepository creates a new FailedLoginRepository
func NewFailedLoginRepository(db *database.DB) *FailedLoginRepository {
	return &FailedLoginRepository{db: db}
}

// RecordAttempt records a failed login attempt in the audit log
func (r *FailedLoginRepository) RecordAttempt(ctx context.Context, attempt *models.FailedLoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO failed_login_attempts (id, identity, client_address, reason, attempted_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.Identity,
		attempt.ClientAddress,
		attempt.Reason,
		attempt.AttemptedAt,
	)

	return database.MapPostgresError(err)
}

// DeleteOlderThan removes audit entries recorded before cutoff
func (r *FailedLoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM failed_login_attempts WHERE attempted_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
