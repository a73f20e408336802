package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/BradenHooton/staffguard/pkg/logger"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	Upsert(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)
	Touch(ctx context.Context, id string, now time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionConfig holds the per-user cap and idle timeout
type SessionConfig struct {
	MaxSessionsPerUser int
	IdleTimeout        time.Duration
}

// DefaultSessionConfig returns a cap of 3 and a 30 minute idle timeout
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxSessionsPerUser: 3,
		IdleTimeout:        30 * time.Minute,
	}
}

// SessionService keeps session metadata against ids issued by the calling app
type SessionService struct {
	repo   SessionRepository
	audit  *logger.AuditLogger
	config SessionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, config SessionConfig, log *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		audit:  logger.NewAuditLogger(log),
		config: config,
		logger: log,
		now:    time.Now,
	}
}

// SetClock overrides the time source (tests)
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
	s.audit.SetClock(now)
}

// clock returns now at the millisecond precision every session store can hold,
// so idle checks in memory agree with the stored last activity
func (s *SessionService) clock() time.Time {
	return s.now().Truncate(time.Millisecond)
}

// CreateSession records a new session, evicting the user's least recently active
// sessions first so the count after insert equals the cap.
// Re-creating an existing id only refreshes its last activity.
func (s *SessionService) CreateSession(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error {
	sessionID = strings.TrimSpace(sessionID)
	userID = strings.TrimSpace(userID)
	if sessionID == "" || userID == "" {
		return models.ErrInvalidSession
	}
	if deviceInfo == "" {
		deviceInfo = models.DefaultDeviceInfo
	}
	if clientAddress == "" {
		clientAddress = models.DefaultClientAddress
	}

	if err := s.enforceSessionLimit(ctx, userID, sessionID); err != nil {
		return err
	}

	now := s.clock()
	session := &models.Session{
		ID:            sessionID,
		UserID:        userID,
		DeviceInfo:    deviceInfo,
		ClientAddress: clientAddress,
		CreatedAt:     now,
		LastActive:    now,
	}

	if err := s.repo.Upsert(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// enforceSessionLimit deletes the oldest sessions so one more fits under the cap.
// Not atomic with the insert; concurrent logins may overshoot by one until the next create.
func (s *SessionService) enforceSessionLimit(ctx context.Context, userID, incomingID string) error {
	sessions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	// ListByUser is most recent first; the incoming id replaces itself
	others := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.ID != incomingID {
			others = append(others, session)
		}
	}

	if len(others) < s.config.MaxSessionsPerUser {
		return nil
	}

	excess := len(others) - s.config.MaxSessionsPerUser + 1
	evict := make([]string, 0, excess)
	for i := len(others) - 1; i >= 0 && len(evict) < excess; i-- {
		evict = append(evict, others[i].ID)
	}

	deleted, err := s.repo.DeleteByIDs(ctx, evict)
	if err != nil {
		return fmt.Errorf("failed to evict sessions: %w", err)
	}

	s.audit.LogSessionEvent(logger.SessionEvent{
		EventType: "sessions_evicted",
		UserID:    userID,
		Count:     deleted,
	})

	return nil
}

// UpdateSessionActivity marks a session as active now. Unknown ids are ignored.
func (s *SessionService) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	if err := s.repo.Touch(ctx, sessionID, s.clock()); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// ValidateSession reports whether a session exists and is within the idle timeout.
// An idle session is deleted. Last activity is never refreshed here.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.clock()
	if session.IdleFor(now) <= s.config.IdleTimeout {
		return true, nil
	}

	// Conditional delete so a concurrent touch keeps the session
	deleted, err := s.repo.DeleteIfIdle(ctx, sessionID, now.Add(-s.config.IdleTimeout))
	if err != nil {
		return false, fmt.Errorf("failed to delete idle session: %w", err)
	}
	if deleted {
		s.logger.Info("idle session expired",
			slog.String("user_id", session.UserID),
			slog.Duration("idle", session.IdleFor(now)))
	}

	return false, nil
}

// DeleteSession removes one session. Deleting an unknown id succeeds.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllUserSessions removes every session for a user and returns how many were deleted
func (s *SessionService) DeleteAllUserSessions(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}

	s.audit.LogSessionEvent(logger.SessionEvent{
		EventType: "sessions_revoked",
		UserID:    userID,
		Count:     deleted,
	})

	return deleted, nil
}

// GetUserSessions lists a user's sessions, most recently active first
func (s *SessionService) GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	return sessions, nil
}

// CleanupExpiredSessions deletes every session idle beyond the timeout
func (s *SessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteIdleBefore(ctx, s.clock().Add(-s.config.IdleTimeout))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired sessions: %w", err)
	}
	return deleted, nil
}
