package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
)

// TestClock is a manually advanced time source for tests
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewTestClock starts a clock at start
func NewTestClock(start time.Time) *TestClock {
	return &TestClock{now: start}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockAccountSecurityRepository implements AccountSecurityRepository for testing
type MockAccountSecurityRepository struct {
	GetByIdentityFunc           func(ctx context.Context, identity string) (*models.AccountSecurity, error)
	IncrementFailedAttemptsFunc func(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error)
	ClearExpiredLockFunc        func(ctx context.Context, identity string, now time.Time) (bool, error)
	ResetFunc                   func(ctx context.Context, identity string, now time.Time) error
	UnlockFunc                  func(ctx context.Context, identity string, now time.Time) error
}

func (m *MockAccountSecurityRepository) GetByIdentity(ctx context.Context, identity string) (*models.AccountSecurity, error) {
	if m.GetByIdentityFunc != nil {
		return m.GetByIdentityFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountSecurityRepository) IncrementFailedAttempts(ctx context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
	if m.IncrementFailedAttemptsFunc != nil {
		return m.IncrementFailedAttemptsFunc(ctx, identity, now, threshold, lockedUntil)
	}
	return &models.AccountSecurity{Identity: identity, FailedLoginAttempts: 1, LastFailedLogin: &now, UpdatedAt: now}, nil
}

func (m *MockAccountSecurityRepository) ClearExpiredLock(ctx context.Context, identity string, now time.Time) (bool, error) {
	if m.ClearExpiredLockFunc != nil {
		return m.ClearExpiredLockFunc(ctx, identity, now)
	}
	return true, nil
}

func (m *MockAccountSecurityRepository) Reset(ctx context.Context, identity string, now time.Time) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identity, now)
	}
	return nil
}

func (m *MockAccountSecurityRepository) Unlock(ctx context.Context, identity string, now time.Time) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, identity, now)
	}
	return nil
}

// MockFailedLoginRepository implements FailedLoginRepository for testing
type MockFailedLoginRepository struct {
	RecordAttemptFunc   func(ctx context.Context, attempt *models.FailedLoginAttempt) error
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockFailedLoginRepository) RecordAttempt(ctx context.Context, attempt *models.FailedLoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockFailedLoginRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	UpsertFunc           func(ctx context.Context, session *models.Session) error
	GetByIDFunc          func(ctx context.Context, id string) (*models.Session, error)
	ListByUserFunc       func(ctx context.Context, userID string) ([]*models.Session, error)
	TouchFunc            func(ctx context.Context, id string, now time.Time) error
	DeleteFunc           func(ctx context.Context, id string) error
	DeleteByIDsFunc      func(ctx context.Context, ids []string) (int64, error)
	DeleteIfIdleFunc     func(ctx context.Context, id string, cutoff time.Time) (bool, error)
	DeleteByUserFunc     func(ctx context.Context, userID string) (int64, error)
	DeleteIdleBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockSessionRepository) Upsert(ctx context.Context, session *models.Session) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, id string, now time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, now)
	}
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockSessionRepository) DeleteIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	if m.DeleteIfIdleFunc != nil {
		return m.DeleteIfIdleFunc(ctx, id, cutoff)
	}
	return false, nil
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if m.DeleteByUserFunc != nil {
		return m.DeleteByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *MockSessionRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteIdleBeforeFunc != nil {
		return m.DeleteIdleBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

// MockLockoutNotifier implements LockoutNotifier for testing
type MockLockoutNotifier struct {
	NotifyAccountLockedFunc func(ctx context.Context, identity string, lockedUntil time.Time) error
}

func (m *MockLockoutNotifier) NotifyAccountLocked(ctx context.Context, identity string, lockedUntil time.Time) error {
	if m.NotifyAccountLockedFunc != nil {
		return m.NotifyAccountLockedFunc(ctx, identity, lockedUntil)
	}
	return nil
}

// MockRateLimitChecker implements RateLimitChecker for testing
type MockRateLimitChecker struct {
	CheckFunc func(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error)
}

func (m *MockRateLimitChecker) Check(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, key, window, maxRequests)
	}
	return &models.RateLimitResult{Allowed: true, Remaining: maxRequests - 1}, nil
}

// MockLockoutGuard implements LockoutGuard for testing
type MockLockoutGuard struct {
	CheckLockoutFunc        func(ctx context.Context, identity string) (*models.LockoutStatus, error)
	RecordFailedLoginFunc   func(ctx context.Context, identity, clientAddress, reason string) (*models.LockoutStatus, error)
	ResetFailedAttemptsFunc func(ctx context.Context, identity string) error
}

func (m *MockLockoutGuard) CheckLockout(ctx context.Context, identity string) (*models.LockoutStatus, error) {
	if m.CheckLockoutFunc != nil {
		return m.CheckLockoutFunc(ctx, identity)
	}
	return &models.LockoutStatus{RemainingAttempts: 5}, nil
}

func (m *MockLockoutGuard) RecordFailedLogin(ctx context.Context, identity, clientAddress, reason string) (*models.LockoutStatus, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, identity, clientAddress, reason)
	}
	return &models.LockoutStatus{RemainingAttempts: 4}, nil
}

func (m *MockLockoutGuard) ResetFailedAttempts(ctx context.Context, identity string) error {
	if m.ResetFailedAttemptsFunc != nil {
		return m.ResetFailedAttemptsFunc(ctx, identity)
	}
	return nil
}

// MockSessionRegistry implements SessionRegistry for testing
type MockSessionRegistry struct {
	CreateSessionFunc func(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error
}

func (m *MockSessionRegistry) CreateSession(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, sessionID, userID, deviceInfo, clientAddress)
	}
	return nil
}
