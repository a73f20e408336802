package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/BradenHooton/staffguard/internal/repositories/memory"
	"github.com/BradenHooton/staffguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicies() map[string]models.RateLimitPolicy {
	return map[string]models.RateLimitPolicy{
		models.EndpointLogin:          {Window: 15 * time.Minute, MaxRequests: 5},
		models.EndpointRegister:       {Window: 15 * time.Minute, MaxRequests: 5},
		models.EndpointForgotPassword: {Window: 15 * time.Minute, MaxRequests: 3},
		models.EndpointResetPassword:  {Window: 15 * time.Minute, MaxRequests: 5},
	}
}

func TestLoginGateService_EvaluateRateLimited(t *testing.T) {
	limiter := &services.MockRateLimitChecker{
		CheckFunc: func(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
			assert.Equal(t, "login:10.0.0.1", key)
			assert.Equal(t, 15*time.Minute, window)
			assert.Equal(t, 5, maxRequests)
			return &models.RateLimitResult{Allowed: false, RetryAfterSeconds: 42}, nil
		},
	}
	lockout := &services.MockLockoutGuard{
		CheckLockoutFunc: func(ctx context.Context, identity string) (*models.LockoutStatus, error) {
			t.Fatal("lockout must not be consulted once the rate limit rejects")
			return nil, nil
		},
	}

	gate := services.NewLoginGateService(limiter, lockout, &services.MockSessionRegistry{}, testPolicies(), testLogger())

	decision, err := gate.Evaluate(context.Background(), "u1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.LoginDecisionRateLimited, decision.Outcome)
	assert.Equal(t, 42, decision.RetryAfterSeconds)
}

func TestLoginGateService_EvaluateLocked(t *testing.T) {
	until := testEpoch.Add(30 * time.Minute)
	lockout := &services.MockLockoutGuard{
		CheckLockoutFunc: func(ctx context.Context, identity string) (*models.LockoutStatus, error) {
			return &models.LockoutStatus{IsLocked: true, LockedUntil: &until}, nil
		},
	}

	gate := services.NewLoginGateService(&services.MockRateLimitChecker{}, lockout, &services.MockSessionRegistry{}, testPolicies(), testLogger())

	decision, err := gate.Evaluate(context.Background(), "u1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.LoginDecisionLocked, decision.Outcome)
	require.NotNil(t, decision.LockedUntil)
	assert.True(t, decision.LockedUntil.Equal(until))
}

func TestLoginGateService_EvaluateProceed(t *testing.T) {
	lockout := &services.MockLockoutGuard{
		CheckLockoutFunc: func(ctx context.Context, identity string) (*models.LockoutStatus, error) {
			return &models.LockoutStatus{RemainingAttempts: 2}, nil
		},
	}

	gate := services.NewLoginGateService(&services.MockRateLimitChecker{}, lockout, &services.MockSessionRegistry{}, testPolicies(), testLogger())

	decision, err := gate.Evaluate(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, models.LoginDecisionProceed, decision.Outcome)
	assert.Equal(t, 2, decision.RemainingAttempts)
}

func TestLoginGateService_EvaluateDefaultsClientAddress(t *testing.T) {
	var gotKey string
	limiter := &services.MockRateLimitChecker{
		CheckFunc: func(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
			gotKey = key
			return &models.RateLimitResult{Allowed: true}, nil
		},
	}

	gate := services.NewLoginGateService(limiter, &services.MockLockoutGuard{}, &services.MockSessionRegistry{}, testPolicies(), testLogger())

	_, err := gate.Evaluate(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "login:unknown", gotKey)
}

func TestLoginGateService_EvaluateSurfacesErrors(t *testing.T) {
	limiterErr := errors.New("redis down")
	limiter := &services.MockRateLimitChecker{
		CheckFunc: func(ctx context.Context, key string, window time.Duration, maxRequests int) (*models.RateLimitResult, error) {
			return nil, limiterErr
		},
	}

	gate := services.NewLoginGateService(limiter, &services.MockLockoutGuard{}, &services.MockSessionRegistry{}, testPolicies(), testLogger())
	_, err := gate.Evaluate(context.Background(), "u1", "10.0.0.1")
	assert.ErrorIs(t, err, limiterErr)

	storeErr := errors.New("db down")
	lockout := &services.MockLockoutGuard{
		CheckLockoutFunc: func(ctx context.Context, identity string) (*models.LockoutStatus, error) {
			return nil, storeErr
		},
	}
	gate = services.NewLoginGateService(&services.MockRateLimitChecker{}, lockout, &services.MockSessionRegistry{}, testPolicies(), testLogger())
	_, err = gate.Evaluate(context.Background(), "u1", "10.0.0.1")
	assert.ErrorIs(t, err, storeErr)
}

func TestLoginGateService_RecordFailure(t *testing.T) {
	var gotReason string
	lockout := &services.MockLockoutGuard{
		RecordFailedLoginFunc: func(ctx context.Context, identity, clientAddress, reason string) (*models.LockoutStatus, error) {
			gotReason = reason
			return &models.LockoutStatus{RemainingAttempts: 3}, nil
		},
	}
	sessions := &services.MockSessionRegistry{
		CreateSessionFunc: func(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error {
			t.Fatal("failed logins must not create sessions")
			return nil
		},
	}

	gate := services.NewLoginGateService(&services.MockRateLimitChecker{}, lockout, sessions, testPolicies(), testLogger())

	result, err := gate.RecordOutcome(context.Background(), models.LoginOutcome{
		Identity:      "u1",
		ClientAddress: "10.0.0.1",
		Success:       false,
		Reason:        "invalid_credentials",
		SessionID:     "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "invalid_credentials", gotReason)
	assert.False(t, result.SessionCreated)
	assert.Equal(t, 3, result.Lockout.RemainingAttempts)
}

func TestLoginGateService_RecordSuccessCreatesSessionAndResets(t *testing.T) {
	var created, reset bool
	lockout := &services.MockLockoutGuard{
		ResetFailedAttemptsFunc: func(ctx context.Context, identity string) error {
			reset = true
			return nil
		},
	}
	sessions := &services.MockSessionRegistry{
		CreateSessionFunc: func(ctx context.Context, sessionID, userID, deviceInfo, clientAddress string) error {
			created = true
			assert.Equal(t, "sess-1", sessionID)
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, "Safari on iPad", deviceInfo)
			return nil
		},
	}

	gate := services.NewLoginGateService(&services.MockRateLimitChecker{}, lockout, sessions, testPolicies(), testLogger())

	result, err := gate.RecordOutcome(context.Background(), models.LoginOutcome{
		Identity:   "u1",
		Success:    true,
		SessionID:  "sess-1",
		UserID:     "user-1",
		DeviceInfo: "Safari on iPad",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, reset)
	assert.True(t, result.SessionCreated)
	assert.False(t, result.Lockout.IsLocked)
}

func TestLoginGateService_CheckEndpoint(t *testing.T) {
	clock := services.NewTestClock(testEpoch)
	limiter := services.NewRateLimiter()
	limiter.SetClock(clock.Now)

	gate := services.NewLoginGateService(limiter, &services.MockLockoutGuard{}, &services.MockSessionRegistry{}, testPolicies(), testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := gate.CheckEndpoint(ctx, models.EndpointForgotPassword, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := gate.CheckEndpoint(ctx, models.EndpointForgotPassword, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// separate budget per endpoint
	result, err = gate.CheckEndpoint(ctx, models.EndpointResetPassword, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	_, err = gate.CheckEndpoint(ctx, "delete_everything", "10.0.0.1")
	assert.ErrorIs(t, err, models.ErrUnknownEndpoint)
}

func TestLoginGateService_EndToEnd(t *testing.T) {
	clock := services.NewTestClock(testEpoch)

	limiter := services.NewRateLimiter()
	limiter.SetClock(clock.Now)

	lockout := services.NewLockoutService(memory.NewAccountSecurityRepository(), memory.NewFailedLoginRepository(), services.DefaultLockoutConfig(), testLogger())
	lockout.SetClock(clock.Now)

	sessionRepo := memory.NewSessionRepository()
	sessions := services.NewSessionService(sessionRepo, services.DefaultSessionConfig(), testLogger())
	sessions.SetClock(clock.Now)

	policies := testPolicies()
	policies[models.EndpointLogin] = models.RateLimitPolicy{Window: 15 * time.Minute, MaxRequests: 100}
	gate := services.NewLoginGateService(limiter, lockout, sessions, policies, testLogger())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		decision, err := gate.Evaluate(ctx, "u1", "10.0.0.1")
		require.NoError(t, err)
		require.Equal(t, models.LoginDecisionProceed, decision.Outcome)

		_, err = gate.RecordOutcome(ctx, models.LoginOutcome{Identity: "u1", ClientAddress: "10.0.0.1"})
		require.NoError(t, err)
	}

	decision, err := gate.Evaluate(ctx, "u1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, models.LoginDecisionProceed, decision.Outcome)
	assert.Equal(t, 1, decision.RemainingAttempts)

	result, err := gate.RecordOutcome(ctx, models.LoginOutcome{
		Identity:      "u1",
		ClientAddress: "10.0.0.1",
		Success:       true,
		SessionID:     "sess-1",
		UserID:        "user-1",
	})
	require.NoError(t, err)
	assert.True(t, result.SessionCreated)
	assert.Equal(t, 5, result.Lockout.RemainingAttempts)

	status, err := lockout.CheckLockout(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, 5, status.RemainingAttempts)

	valid, err := sessions.ValidateSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, valid)
}
