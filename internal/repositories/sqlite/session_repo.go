package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/BradenHooton/staffguard/internal/database"
	"github.com/BradenHooton/staffguard/internal/models"
)

const sessionColumns = `id, user_id, device_info, client_address, created_at, last_active`

// SessionRepository handles SQLite operations for active sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert inserts a session, or only refreshes last activity when the id exists
func (r *SessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO active_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET last_active = excluded.last_active
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.DeviceInfo,
		session.ClientAddress,
		toMillis(session.CreatedAt),
		toMillis(session.LastActive),
	)

	return database.MapSQLiteError(err)
}

// GetByID returns a session, or models.ErrNotFound
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM active_sessions WHERE id = ?`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}
	return s, nil
}

// ListByUser returns a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM active_sessions
		WHERE user_id = ?
		ORDER BY last_active DESC, created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}
	defer rows.Close()

	sessions := []*models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, database.MapSQLiteError(err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE active_sessions SET last_active = ? WHERE id = ?`, toMillis(now), id)
	return database.MapSQLiteError(err)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE id = ?`, id)
	return database.MapSQLiteError(err)
}

// DeleteByIDs removes the listed sessions in one statement
func (r *SessionRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, database.MapSQLiteError(err)
	}

	return result.RowsAffected()
}

// DeleteIfIdle removes a session only while its last activity is still before cutoff
func (r *SessionRepository) DeleteIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM active_sessions WHERE id = ? AND last_active < ?`, id, ceilMillis(cutoff))
	if err != nil {
		return false, database.MapSQLiteError(err)
	}

	n, err := result.RowsAffected()
	return n > 0, err
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, database.MapSQLiteError(err)
	}

	return result.RowsAffected()
}

// DeleteIdleBefore removes every session whose last activity is before cutoff
func (r *SessionRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE last_active < ?`, ceilMillis(cutoff))
	if err != nil {
		return 0, database.MapSQLiteError(err)
	}

	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s                     models.Session
		createdAt, lastActive int64
	)

	if err := row.Scan(&s.ID, &s.UserID, &s.DeviceInfo, &s.ClientAddress, &createdAt, &lastActive); err != nil {
		return nil, err
	}

	s.CreatedAt = fromMillis(createdAt)
	s.LastActive = fromMillis(lastActive)

	return &s, nil
}
