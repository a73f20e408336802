package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/lib/pq"
)

// SessionRepository handles database operations for active sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert inserts a session, or refreshes last_active when the id already exists
func (r *SessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO active_sessions (id, user_id, device_info, client_address, created_at, last_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET last_active = EXCLUDED.last_active
	`

	_, err := r.db.Pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.DeviceInfo,
		session.ClientAddress,
		session.CreatedAt,
		session.LastActive,
	)

	return database.MapPostgresError(err)
}

// GetByID returns a session or models.ErrNotFound
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, device_info, client_address, created_at, last_active
		FROM active_sessions
		WHERE id = $1
	`

	var s models.Session
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.DeviceInfo, &s.ClientAddress, &s.CreatedAt, &s.LastActive,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

// ListByUser returns a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, device_info, client_address, created_at, last_active
		FROM active_sessions
		WHERE user_id = $1
		ORDER BY last_active DESC, created_at DESC, id
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeviceInfo, &s.ClientAddress, &s.CreatedAt, &s.LastActive); err != nil {
			return nil, database.MapPostgresError(err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return sessions, nil
}

// Touch sets last_active for a session. Missing ids are a no-op.
func (r *SessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE active_sessions SET last_active = $2 WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id, now)
	return database.MapPostgresError(err)
}

// Delete removes a session. Missing ids are a no-op.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM active_sessions WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// DeleteByIDs removes several sessions in one statement
func (r *SessionRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM active_sessions WHERE id = ANY($1)`

	result, err := r.db.Pool.Exec(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteIfIdle removes a session only while its last activity is still before cutoff
func (r *SessionRepository) DeleteIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	query := `DELETE FROM active_sessions WHERE id = $1 AND last_active < $2`

	result, err := r.db.Pool.Exec(ctx, query, id, cutoff)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

// DeleteByUser removes every session belonging to a user
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM active_sessions WHERE user_id = $1`

	result, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteIdleBefore removes every session whose last activity is before cutoff
func (r *SessionRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM active_sessions WHERE last_active < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
