package models

import "time"

// LoginDecisionOutcome is the tri-state answer given before credentials are verified.
type LoginDecisionOutcome string

const (
	LoginDecisionProceed     LoginDecisionOutcome = "proceed"
	LoginDecisionRateLimited LoginDecisionOutcome = "rate_limited"
	LoginDecisionLocked      LoginDecisionOutcome = "locked"
)

// LoginDecision tells the caller whether it may go on to verify credentials.
type LoginDecision struct {
	Outcome           LoginDecisionOutcome `json:"outcome"`
	RetryAfterSeconds int                  `json:"retry_after_seconds,omitempty"`
	LockedUntil       *time.Time           `json:"locked_until,omitempty"`
	RemainingAttempts int                  `json:"remaining_attempts"`
}

// LoginOutcome is reported by the caller once it has checked the credentials itself.
type LoginOutcome struct {
	Identity      string
	ClientAddress string
	Success       bool
	Reason        string

	// Only used on success
	SessionID  string
	UserID     string
	DeviceInfo string
}

// LoginOutcomeResult carries the state left behind by a reported outcome.
type LoginOutcomeResult struct {
	Lockout        *LockoutStatus `json:"lockout"`
	SessionCreated bool           `json:"session_created"`
}
