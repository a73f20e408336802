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

// AccountSecurityRepository defines the interface for lockout state persistence.
// IncrementFailedAttempts must be a single atomic increment-and-return that also
// sets locked_until once the new count reaches threshold.
type AccountSecurityRepository interface {
	GetByIdentity(ctx context.Context, identity string) (*models.AccountSecurity, error)
	IncrementFailedAttempts(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error)
	ClearExpiredLock(ctx context.Context, identity string, now time.Time) (bool, error)
	Reset(ctx context.Context, identity string, now time.Time) error
	Unlock(ctx context.Context, identity string, now time.Time) error
}

// FailedLoginRepository defines the interface for the failed login audit log
type FailedLoginRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.FailedLoginAttempt) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockoutNotifier is told when an account transitions into the locked state
type LockoutNotifier interface {
	NotifyAccountLocked(ctx context.Context, identity string, lockedUntil time.Time) error
}

// LockoutConfig holds the lockout threshold and duration
type LockoutConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// DefaultLockoutConfig returns 5 attempts and a 30 minute lock
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   30 * time.Minute,
	}
}

const notifyTimeout = 10 * time.Second

// LockoutService tracks failed logins per identity and imposes timed lockouts
type LockoutService struct {
	accounts AccountSecurityRepository
	attempts FailedLoginRepository
	notifier LockoutNotifier
	audit    *logger.AuditLogger
	config   LockoutConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(accounts AccountSecurityRepository, attempts FailedLoginRepository, config LockoutConfig, log *slog.Logger) *LockoutService {
	return &LockoutService{
		accounts: accounts,
		attempts: attempts,
		audit:    logger.NewAuditLogger(log),
		config:   config,
		logger:   log,
		now:      time.Now,
	}
}

// SetNotifier installs the notifier used when an account becomes locked
func (s *LockoutService) SetNotifier(notifier LockoutNotifier) {
	s.notifier = notifier
}

// SetClock overrides the time source (tests)
func (s *LockoutService) SetClock(now func() time.Time) {
	s.now = now
	s.audit.SetClock(now)
}

// CheckLockout reports whether an identity is currently locked.
// An expired lock is cleared before answering.
func (s *LockoutService) CheckLockout(ctx context.Context, identity string) (*models.LockoutStatus, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// Two passes: a failed conditional clear means another writer changed the record
	for pass := 0; pass < 2; pass++ {
		record, err := s.accounts.GetByIdentity(ctx, identity)
		if errors.Is(err, models.ErrNotFound) {
			return s.unlocked(s.config.MaxFailedAttempts), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load lockout state: %w", err)
		}

		if record.IsLockedAt(now) {
			return s.locked(*record.LockedUntil), nil
		}

		if !record.HasExpiredLockAt(now) {
			return s.unlocked(s.config.MaxFailedAttempts - record.FailedLoginAttempts), nil
		}

		cleared, err := s.accounts.ClearExpiredLock(ctx, identity, now)
		if err != nil {
			return nil, fmt.Errorf("failed to clear expired lock: %w", err)
		}
		if cleared {
			s.logger.Info("account lock expired",
				slog.String("identity", logger.SanitizedIdentity(identity)))
			return s.unlocked(s.config.MaxFailedAttempts), nil
		}
	}

	return s.unlocked(s.config.MaxFailedAttempts), nil
}

// RecordFailedLogin appends an audit entry and atomically bumps the failure counter.
// Reaching the threshold locks the account for the configured duration.
func (s *LockoutService) RecordFailedLogin(ctx context.Context, identity, clientAddress, reason string) (*models.LockoutStatus, error) {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}
	if clientAddress == "" {
		clientAddress = models.DefaultClientAddress
	}
	if reason == "" {
		reason = models.DefaultFailureReason
	}

	now := s.now()

	// Audit entry is best-effort; losing it must not block the decision
	attempt := &models.FailedLoginAttempt{
		Identity:      identity,
		ClientAddress: clientAddress,
		Reason:        reason,
		AttemptedAt:   now,
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record failed login attempt",
			slog.String("identity", logger.SanitizedIdentity(identity)),
			slog.Any("error", err))
	}

	lockedUntil := now.Add(s.config.LockoutDuration)
	record, err := s.accounts.IncrementFailedAttempts(ctx, identity, now, s.config.MaxFailedAttempts, lockedUntil)
	if err != nil {
		return nil, fmt.Errorf("failed to increment failed login attempts: %w", err)
	}

	if record.FailedLoginAttempts < s.config.MaxFailedAttempts {
		if record.IsLockedAt(now) {
			return s.locked(*record.LockedUntil), nil
		}
		return s.unlocked(s.config.MaxFailedAttempts - record.FailedLoginAttempts), nil
	}

	s.audit.LogLockoutEvent(logger.LockoutEvent{
		EventType:      "account_locked",
		Identity:       identity,
		ClientAddress:  clientAddress,
		FailedAttempts: record.FailedLoginAttempts,
		LockedUntil:    &lockedUntil,
	})

	// The counter passes the threshold exactly once per lock; later failures only extend it
	if record.FailedLoginAttempts == s.config.MaxFailedAttempts {
		s.notifyLocked(ctx, identity, lockedUntil)
	}

	return s.locked(lockedUntil), nil
}

// ResetFailedAttempts clears the counter and lock after a verified login
func (s *LockoutService) ResetFailedAttempts(ctx context.Context, identity string) error {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return err
	}

	if err := s.accounts.Reset(ctx, identity, s.now()); err != nil {
		return fmt.Errorf("failed to reset failed login attempts: %w", err)
	}

	return nil
}

// UnlockAccount is the administrative override; it clears the counter and lock
// regardless of state and keeps the last failure time
func (s *LockoutService) UnlockAccount(ctx context.Context, identity string) error {
	identity, err := NormalizeIdentity(identity)
	if err != nil {
		return err
	}

	if err := s.accounts.Unlock(ctx, identity, s.now()); err != nil {
		return fmt.Errorf("failed to unlock account: %w", err)
	}

	s.audit.LogLockoutEvent(logger.LockoutEvent{
		EventType: "account_unlocked",
		Identity:  identity,
	})

	return nil
}

// PurgeAuditLog removes failed login audit entries older than retention
func (s *LockoutService) PurgeAuditLog(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}

	deleted, err := s.attempts.DeleteOlderThan(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge failed login audit log: %w", err)
	}

	return deleted, nil
}

func (s *LockoutService) notifyLocked(ctx context.Context, identity string, lockedUntil time.Time) {
	if s.notifier == nil {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.NotifyAccountLocked(notifyCtx, identity, lockedUntil); err != nil {
			s.logger.Warn("failed to send lockout notification",
				slog.String("identity", logger.SanitizedIdentity(identity)),
				slog.Any("error", err))
		}
	}()
}

func (s *LockoutService) locked(until time.Time) *models.LockoutStatus {
	return &models.LockoutStatus{
		IsLocked:          true,
		LockedUntil:       &until,
		RemainingAttempts: 0,
	}
}

func (s *LockoutService) unlocked(remaining int) *models.LockoutStatus {
	if remaining < 0 {
		remaining = 0
	}
	return &models.LockoutStatus{
		IsLocked:          false,
		RemainingAttempts: remaining,
	}
}

// NormalizeIdentity trims and lower-cases an account identity
func NormalizeIdentity(identity string) (string, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", models.ErrInvalidIdentity
	}
	return identity, nil
}
