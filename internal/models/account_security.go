package models

import "time"

// AccountSecurity holds the lockout fields tracked for one account identity.
type AccountSecurity struct {
	Identity            string     `db:"identity"`
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
	LastFailedLogin     *time.Time `db:"last_failed_login"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// IsLockedAt reports whether the record carries a lock that is still in force at now.
func (a *AccountSecurity) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// HasExpiredLockAt reports whether the record carries a lock that has already elapsed.
func (a *AccountSecurity) HasExpiredLockAt(now time.Time) bool {
	return a.LockedUntil != nil && !a.LockedUntil.After(now)
}

// LockoutStatus is the result of every LockoutGuard decision.
type LockoutStatus struct {
	IsLocked          bool       `json:"is_locked"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	RemainingAttempts int        `json:"remaining_attempts"`
}
