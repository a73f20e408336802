package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/staffguard/internal/models"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
)

// writeServiceError maps a service error onto an HTTP response.
// Anything that is not a caller mistake is reported as 503 so the calling app fails closed.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidIdentity),
		errors.Is(err, models.ErrInvalidSession),
		errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrUnknownEndpoint):
		pkghttp.WriteNotFound(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	default:
		logger.Error(op+" failed", slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, models.ErrStoreUnavailable.Error())
	}
}
