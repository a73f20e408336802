package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/staffguard/internal/models"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/BradenHooton/staffguard/pkg/logger"
)

// LockoutServiceInterface defines the lockout surface used by AccountHandler
type LockoutServiceInterface interface {
	CheckLockout(ctx context.Context, identity string) (*models.LockoutStatus, error)
	UnlockAccount(ctx context.Context, identity string) error
}

// AccountHandler exposes lockout state and the admin unlock override
type AccountHandler struct {
	service LockoutServiceInterface
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service LockoutServiceInterface, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// UnlockAccountRequest represents the request body for an admin unlock
type UnlockAccountRequest struct {
	Identity string `json:"identity" validate:"required,max=320"`
}

// GetLockout returns the lockout status of an identity
// @Router /v1/accounts/lockout [get]
func (h *AccountHandler) GetLockout(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		pkghttp.WriteBadRequest(w, "identity query parameter is required")
		return
	}

	status, err := h.service.CheckLockout(r.Context(), identity)
	if err != nil {
		writeServiceError(w, h.logger, "lockout lookup", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// Unlock clears the lock and failure counter of an identity
// @Router /v1/admin/accounts/unlock [post]
func (h *AccountHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockAccountRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.UnlockAccount(r.Context(), req.Identity); err != nil {
		writeServiceError(w, h.logger, "account unlock", err)
		return
	}

	h.logger.Info("account unlocked by admin",
		slog.String("identity", logger.SanitizedIdentity(req.Identity)))

	w.WriteHeader(http.StatusNoContent)
}
