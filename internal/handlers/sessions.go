package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/staffguard/internal/models"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
	"github.com/go-chi/chi/v5"
)

// SessionServiceInterface defines the session registry surface used by SessionHandler
type SessionServiceInterface interface {
	UpdateSessionActivity(ctx context.Context, sessionID string) error
	ValidateSession(ctx context.Context, sessionID string) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID string) (int64, error)
	GetUserSessions(ctx context.Context, userID string) ([]*models.Session, error)
}

// SessionHandler exposes the session registry
type SessionHandler struct {
	service SessionServiceInterface
	logger  *slog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service SessionServiceInterface, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger,
	}
}

// SessionValidityResponse is returned by Validate
type SessionValidityResponse struct {
	Valid bool `json:"valid"`
}

// UserSessionsResponse lists a user's sessions
type UserSessionsResponse struct {
	Sessions []*models.Session `json:"sessions"`
}

// RevokedSessionsResponse reports how many sessions were removed
type RevokedSessionsResponse struct {
	Revoked int64 `json:"revoked"`
}

// Activity marks a session as active now
// @Router /v1/sessions/{id}/activity [post]
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UpdateSessionActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, "session activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate reports whether a session is still usable
// @Router /v1/sessions/{id}/validate [get]
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	valid, err := h.service.ValidateSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, "session validation", err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, SessionValidityResponse{Valid: valid})
}

// Delete ends one session (logout)
// @Router /v1/sessions/{id} [delete]
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, "session delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUserSessions returns a user's sessions, most recently active first
// @Router /v1/users/{userID}/sessions [get]
func (h *SessionHandler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.GetUserSessions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, h.logger, "list user sessions", err)
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, UserSessionsResponse{Sessions: sessions})
}

// DeleteUserSessions ends every session of a user
// @Router /v1/users/{userID}/sessions [delete]
func (h *SessionHandler) DeleteUserSessions(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.service.DeleteAllUserSessions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, h.logger, "revoke user sessions", err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, RevokedSessionsResponse{Revoked: revoked})
}
