package models

import "time"

const (
	// DefaultClientAddress is recorded when the caller cannot derive a client address
	DefaultClientAddress = "unknown"
	// DefaultFailureReason is recorded when the caller does not supply a reason
	DefaultFailureReason = "invalid_credentials"
)

// FailedLoginAttempt is one append-only audit entry for a failed login.
// Entries are never read back for lockout decisions.
type FailedLoginAttempt struct {
	ID            string    `db:"id"`
	Identity      string    `db:"identity"`
	ClientAddress string    `db:"client_address"`
	Reason        string    `db:"reason"`
	AttemptedAt   time.Time `db:"attempted_at"`
}
