package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// LockoutEvent represents a change to an account's lock state
type LockoutEvent struct {
	EventType      string
	Identity       string
	ClientAddress  string
	FailedAttempts int
	LockedUntil    *time.Time
}

// SessionEvent represents a session being revoked or evicted
type SessionEvent struct {
	EventType string
	UserID    string
	SessionID string
	Count     int64
	Metadata  map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the timestamp source
func (al *AuditLogger) SetClock(now func() time.Time) {
	al.now = now
}

// LogLockoutEvent logs account lock and unlock events. Identities are masked.
func (al *AuditLogger) LogLockoutEvent(event LockoutEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "lockout"),
		slog.String("event_type", event.EventType),
		slog.String("identity", SanitizedIdentity(event.Identity)),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.ClientAddress != "" {
		attrs = append(attrs, slog.String("client_address", event.ClientAddress))
	}
	if event.FailedAttempts > 0 {
		attrs = append(attrs, slog.Int("failed_attempts", event.FailedAttempts))
	}
	if event.LockedUntil != nil {
		attrs = append(attrs, slog.String("locked_until", event.LockedUntil.UTC().Format(time.RFC3339)))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
}

// LogSessionEvent logs session revocations and cap evictions
func (al *AuditLogger) LogSessionEvent(event SessionEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "session"),
		slog.String("event_type", event.EventType),
		slog.String("user_id", event.UserID),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", RedactToken(event.SessionID)))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.String("count", strconv.FormatInt(event.Count, 10)))
	}

	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
}
