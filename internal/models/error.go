package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrBadRequest = errors.New("bad request")

	// Infrastructure errors
	ErrStoreUnavailable       = errors.New("security store unavailable")
	ErrRateLimiterUnavailable = errors.New("rate limiter backend unavailable")

	// Caller errors
	ErrUnknownEndpoint = errors.New("unknown rate limit endpoint")
	ErrInvalidIdentity = errors.New("identity is required")
	ErrInvalidSession  = errors.New("session id and user id are required")
)
