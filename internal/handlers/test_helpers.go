package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/staffguard/internal/models"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithURLParams attaches chi route parameters to a request
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockLoginGate implements LoginGateInterface for testing
type MockLoginGate struct {
	EvaluateFunc      func(ctx context.Context, identity, clientAddress string) (*models.LoginDecision, error)
	RecordOutcomeFunc func(ctx context.Context, outcome models.LoginOutcome) (*models.LoginOutcomeResult, error)
	CheckEndpointFunc func(ctx context.Context, endpoint, clientAddress string) (*models.RateLimitResult, error)
}

func (m *MockLoginGate) Evaluate(ctx context.Context, identity, clientAddress string) (*models.LoginDecision, error) {
	if m.EvaluateFunc == nil {
		return &models.LoginDecision{Outcome: models.LoginDecisionProceed}, nil
	}
	return m.EvaluateFunc(ctx, identity, clientAddress)
}

func (m *MockLoginGate) RecordOutcome(ctx context.Context, outcome models.LoginOutcome) (*models.LoginOutcomeResult, error) {
	if m.RecordOutcomeFunc == nil {
		return &models.LoginOutcomeResult{Lockout: &models.LockoutStatus{}}, nil
	}
	return m.RecordOutcomeFunc(ctx, outcome)
}

func (m *MockLoginGate) CheckEndpoint(ctx context.Context, endpoint, clientAddress string) (*models.RateLimitResult, error) {
	if m.CheckEndpointFunc == nil {
		return &models.RateLimitResult{Allowed: true}, nil
	}
	return m.CheckEndpointFunc(ctx, endpoint, clientAddress)
}

// MockSessionService implements SessionServiceInterface for testing
type MockSessionService struct {
	UpdateSessionActivityFunc func(ctx context.Context, sessionID string) error
	ValidateSessionFunc       func(ctx context.Context, sessionID string) (bool, error)
	DeleteSessionFunc         func(ctx context.Context, sessionID string) error
	DeleteAllUserSessionsFunc func(ctx context.Context, userID string) (int64, error)
	GetUserSessionsFunc       func(ctx context.Context, userID string) ([]*models.Session, error)
}

func (m *MockSessionService) UpdateSessionActivity(ctx context.Context, sessionID string) error {
	if m.UpdateSessionActivityFunc == nil {
		return nil
	}
	return m.UpdateSessionActivityFunc(ctx, sessionID)
}

func (m *MockSessionService) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	if m.ValidateSessionFunc == nil {
		return false, nil
	}
	return m.ValidateSessionFunc(ctx, sessionID)
}

func (m *MockSessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc == nil {
		return nil
	}
	return m.DeleteSessionFunc(ctx, sessionID)
}

func (m *MockSessionService) DeleteAllUserSessions(ctx context.Context, userID string) (int64, error) {
	if m.DeleteAllUserSessionsFunc == nil {
		return 0, nil
	}
	return m.DeleteAllUserSessionsFunc(ctx, userID)
}

func (m *MockSessionService) GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.GetUserSessionsFunc == nil {
		return nil, nil
	}
	return m.GetUserSessionsFunc(ctx, userID)
}

// MockLockoutService implements LockoutServiceInterface for testing
type MockLockoutService struct {
	CheckLockoutFunc  func(ctx context.Context, identity string) (*models.LockoutStatus, error)
	UnlockAccountFunc func(ctx context.Context, identity string) error
}

func (m *MockLockoutService) CheckLockout(ctx context.Context, identity string) (*models.LockoutStatus, error) {
	if m.CheckLockoutFunc == nil {
		return &models.LockoutStatus{}, nil
	}
	return m.CheckLockoutFunc(ctx, identity)
}

func (m *MockLockoutService) UnlockAccount(ctx context.Context, identity string) error {
	if m.UnlockAccountFunc == nil {
		return nil
	}
	return m.UnlockAccountFunc(ctx, identity)
}
