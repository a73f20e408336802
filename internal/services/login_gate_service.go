package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/BradenHooton/staffguard/pkg/logger"
)

// LockoutGuard is the lockout surface the login gate depends on
type LockoutGuard interface {
	CheckLockout(ctx context.Context, identity string) (*models.LockoutStatus, error)
	RecordFailedLogin(ctx context.Context, identity, clientAddress, reason string) (*models.LockoutStatus, error)
	ResetFailedAttempts(ctx context.Context, identity string) error
}

// SessionRegistry is the session surface the login gate depends on
type SessionRegistry interface {
	CreateSession(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error
}

// LoginGateService composes the rate limiter, lockout guard and session registry
// into the decision a login handler needs before and after it checks credentials.
type LoginGateService struct {
	limiter  RateLimitChecker
	lockout  LockoutGuard
	sessions SessionRegistry
	policies map[string]models.RateLimitPolicy
	logger   *slog.Logger
}

// NewLoginGateService creates a new LoginGateService
func NewLoginGateService(
	limiter RateLimitChecker,
	lockout LockoutGuard,
	sessions SessionRegistry,
	policies map[string]models.RateLimitPolicy,
	logger *slog.Logger,
) *LoginGateService {
	return &LoginGateService{
		limiter:  limiter,
		lockout:  lockout,
		sessions: sessions,
		policies: policies,
		logger:   logger,
	}
}

// Evaluate runs the pre-credential checks: the login rate limit, then account lockout
func (s *LoginGateService) Evaluate(ctx context.Context, identity, clientAddress string) (*models.LoginDecision, error) {
	if clientAddress == "" {
		clientAddress = models.DefaultClientAddress
	}

	result, err := s.check(ctx, models.EndpointLogin, clientAddress)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		s.logger.Warn("login rate limited",
			slog.String("client_address", clientAddress),
			slog.Int("retry_after_seconds", result.RetryAfterSeconds))
		return &models.LoginDecision{
			Outcome:           models.LoginDecisionRateLimited,
			RetryAfterSeconds: result.RetryAfterSeconds,
		}, nil
	}

	status, err := s.lockout.CheckLockout(ctx, identity)
	if err != nil {
		return nil, err
	}
	if status.IsLocked {
		s.logger.Warn("login attempt on locked account",
			slog.String("identity", logger.SanitizedIdentity(identity)),
			slog.String("client_address", clientAddress))
		return &models.LoginDecision{
			Outcome:     models.LoginDecisionLocked,
			LockedUntil: status.LockedUntil,
		}, nil
	}

	return &models.LoginDecision{
		Outcome:           models.LoginDecisionProceed,
		RemainingAttempts: status.RemainingAttempts,
	}, nil
}

// RecordOutcome applies the result of the caller's credential check
func (s *LoginGateService) RecordOutcome(ctx context.Context, outcome models.LoginOutcome) (*models.LoginOutcomeResult, error) {
	if !outcome.Success {
		status, err := s.lockout.RecordFailedLogin(ctx, outcome.Identity, outcome.ClientAddress, outcome.Reason)
		if err != nil {
			return nil, err
		}
		return &models.LoginOutcomeResult{Lockout: status}, nil
	}

	result := &models.LoginOutcomeResult{}
	if outcome.SessionID != "" {
		if err := s.sessions.CreateSession(ctx, outcome.SessionID, outcome.UserID, outcome.DeviceInfo, outcome.ClientAddress); err != nil {
			return nil, err
		}
		result.SessionCreated = true
	}

	if err := s.lockout.ResetFailedAttempts(ctx, outcome.Identity); err != nil {
		return nil, err
	}

	status, err := s.lockout.CheckLockout(ctx, outcome.Identity)
	if err != nil {
		return nil, err
	}
	result.Lockout = status

	return result, nil
}

// CheckEndpoint throttles one of the named sensitive endpoints for a client
func (s *LoginGateService) CheckEndpoint(ctx context.Context, endpoint, clientAddress string) (*models.RateLimitResult, error) {
	if clientAddress == "" {
		clientAddress = models.DefaultClientAddress
	}
	return s.check(ctx, endpoint, clientAddress)
}

func (s *LoginGateService) check(ctx context.Context, endpoint, clientAddress string) (*models.RateLimitResult, error) {
	policy, ok := s.policies[endpoint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownEndpoint, endpoint)
	}

	result, err := s.limiter.Check(ctx, RateLimitKey(endpoint, clientAddress), policy.Window, policy.MaxRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return result, nil
}

// RateLimitKey composes the bucket key for an endpoint and client
func RateLimitKey(endpoint, clientAddress string) string {
	return endpoint + ":" + clientAddress
}
