package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/staffguard/internal/models"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LoginGateInterface defines the login decision surface used by LoginHandler
type LoginGateInterface interface {
	Evaluate(ctx context.Context, identity, clientAddress string) (*models.LoginDecision, error)
	RecordOutcome(ctx context.Context, outcome models.LoginOutcome) (*models.LoginOutcomeResult, error)
	CheckEndpoint(ctx context.Context, endpoint, clientAddress string) (*models.RateLimitResult, error)
}

// LoginHandler answers the pre- and post-credential questions of a login flow
type LoginHandler struct {
	gate     LoginGateInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewLoginHandler creates a new LoginHandler
func NewLoginHandler(gate LoginGateInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		gate:     gate,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// EvaluateLoginRequest represents the request body for a pre-credential check
type EvaluateLoginRequest struct {
	Identity      string `json:"identity" validate:"required,max=320"`
	ClientAddress string `json:"client_address" validate:"omitempty,max=64"`
}

// LoginOutcomeRequest reports the result of the caller's own credential check
type LoginOutcomeRequest struct {
	Identity      string `json:"identity" validate:"required,max=320"`
	Success       *bool  `json:"success" validate:"required"`
	Reason        string `json:"reason" validate:"omitempty,max=64"`
	SessionID     string `json:"session_id" validate:"omitempty,max=128"`
	UserID        string `json:"user_id" validate:"required_with=SessionID,max=128"`
	DeviceInfo    string `json:"device_info" validate:"omitempty,max=256"`
	ClientAddress string `json:"client_address" validate:"omitempty,max=64"`
}

// RateLimitRequest represents the request body for an endpoint throttle check
type RateLimitRequest struct {
	ClientAddress string `json:"client_address" validate:"omitempty,max=64"`
}

// Evaluate decides whether the caller may go on to verify credentials
// @Router /v1/login/evaluate [post]
func (h *LoginHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateLoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	clientAddress := pkghttp.ClientAddress(r, h.ipConfig, req.ClientAddress)

	decision, err := h.gate.Evaluate(r.Context(), req.Identity, clientAddress)
	if err != nil {
		writeServiceError(w, h.logger, "login evaluation", err)
		return
	}

	switch decision.Outcome {
	case models.LoginDecisionRateLimited:
		pkghttp.SetRetryAfter(w, decision.RetryAfterSeconds)
		pkghttp.WriteJSON(w, http.StatusTooManyRequests, decision)
	case models.LoginDecisionLocked:
		pkghttp.WriteJSON(w, http.StatusLocked, decision)
	default:
		pkghttp.WriteJSON(w, http.StatusOK, decision)
	}
}

// Outcome records the result of a credential check
// @Router /v1/login/outcome [post]
func (h *LoginHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	var req LoginOutcomeRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.gate.RecordOutcome(r.Context(), models.LoginOutcome{
		Identity:      req.Identity,
		ClientAddress: pkghttp.ClientAddress(r, h.ipConfig, req.ClientAddress),
		Success:       *req.Success,
		Reason:        req.Reason,
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		DeviceInfo:    req.DeviceInfo,
	})
	if err != nil {
		writeServiceError(w, h.logger, "login outcome", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// CheckRateLimit consumes one request from a named endpoint budget
// @Router /v1/rate-limits/{endpoint} [post]
func (h *LoginHandler) CheckRateLimit(w http.ResponseWriter, r *http.Request) {
	var req RateLimitRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	endpoint := chi.URLParam(r, "endpoint")
	clientAddress := pkghttp.ClientAddress(r, h.ipConfig, req.ClientAddress)

	result, err := h.gate.CheckEndpoint(r.Context(), endpoint, clientAddress)
	if err != nil {
		writeServiceError(w, h.logger, "rate limit check", err)
		return
	}

	if !result.Allowed {
		pkghttp.SetRetryAfter(w, result.RetryAfterSeconds)
		pkghttp.WriteJSON(w, http.StatusTooManyRequests, result)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}
