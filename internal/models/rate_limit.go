package models

import "time"

// Rate limited endpoints recognised by the login gate
const (
	EndpointLogin          = "login"
	EndpointRegister       = "register"
	EndpointForgotPassword = "forgot_password"
	EndpointResetPassword  = "reset_password"
)

// RateLimitPolicy is the fixed-window budget applied to one endpoint.
type RateLimitPolicy struct {
	Window      time.Duration
	MaxRequests int
}

// RateLimitBucket is the per-key fixed-window counter.
type RateLimitBucket struct {
	Key           string
	Count         int
	WindowResetAt time.Time
}

// RateLimitResult is returned by every rate limiter check.
// RetryAfterSeconds is only set when the request was rejected.
type RateLimitResult struct {
	Allowed           bool      `json:"allowed"`
	Remaining         int       `json:"remaining"`
	ResetAt           time.Time `json:"reset_at"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
}
