// Package memory keeps account-security state in process memory.
// It backs tests and single-process development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
)

// AccountSecurityRepository handles lockout state in process memory
type AccountSecurityRepository struct {
	mu      sync.RWMutex
	records map[string]models.AccountSecurity
}

// NewAccountSecurityRepository creates an empty in-memory AccountSecurityRepository
func NewAccountSecurityRepository() *AccountSecurityRepository {
	return &AccountSecurityRepository{
		records: make(map[string]models.AccountSecurity),
	}
}

// GetByIdentity returns a copy of the lockout record, or models.ErrNotFound
func (r *AccountSecurityRepository) GetByIdentity(_ context.Context, identity string) (*models.AccountSecurity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[identity]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneAccountSecurity(record), nil
}

// IncrementFailedAttempts bumps the counter under the write lock and locks the record
// once the new count reaches threshold
func (r *AccountSecurityRepository) IncrementFailedAttempts(_ context.Context, identity string, now time.Time, threshold int, lockedUntil time.Time) (*models.AccountSecurity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identity]
	if !ok {
		record = models.AccountSecurity{Identity: identity}
	}

	if record.HasExpiredLockAt(now) {
		record.LockedUntil = nil
		record.FailedLoginAttempts = 0
	}

	record.FailedLoginAttempts++
	if record.FailedLoginAttempts >= threshold {
		record.LockedUntil = timePtr(lockedUntil)
	}
	record.LastFailedLogin = timePtr(now)
	record.UpdatedAt = now
	r.records[identity] = record

	return cloneAccountSecurity(record), nil
}

// ClearExpiredLock resets the counter and lock only while the lock is expired at now
func (r *AccountSecurityRepository) ClearExpiredLock(_ context.Context, identity string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identity]
	if !ok || !record.HasExpiredLockAt(now) {
		return false, nil
	}

	record.FailedLoginAttempts = 0
	record.LockedUntil = nil
	record.UpdatedAt = now
	r.records[identity] = record
	return true, nil
}

// Reset zeroes the counter and clears the lock and last failure. Missing identities are a no-op.
func (r *AccountSecurityRepository) Reset(_ context.Context, identity string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identity]
	if !ok {
		return nil
	}

	record.FailedLoginAttempts = 0
	record.LockedUntil = nil
	record.LastFailedLogin = nil
	record.UpdatedAt = now
	r.records[identity] = record
	return nil
}

// Unlock zeroes the counter and clears the lock, keeping the last failure time
func (r *AccountSecurityRepository) Unlock(_ context.Context, identity string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[identity]
	if !ok {
		return nil
	}

	record.FailedLoginAttempts = 0
	record.LockedUntil = nil
	record.UpdatedAt = now
	r.records[identity] = record
	return nil
}

func cloneAccountSecurity(record models.AccountSecurity) *models.AccountSecurity {
	out := record
	if record.LockedUntil != nil {
		out.LockedUntil = timePtr(*record.LockedUntil)
	}
	if record.LastFailedLogin != nil {
		out.LastFailedLogin = timePtr(*record.LastFailedLogin)
	}
	return &out
}

func timePtr(t time.Time) *time.Time {
	return &t
}
