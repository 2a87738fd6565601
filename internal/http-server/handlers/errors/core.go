package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"qrtrack/impl/core"
	"qrtrack/lib/api/response"
	"qrtrack/lib/sl"
)

// Render writes the JSON error for a core error; unexpected errors are logged
// and answered with a generic message
func Render(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, message := http.StatusInternalServerError, "Request failed"
	switch {
	case stderrors.Is(err, core.ErrNotFound):
		status, message = http.StatusNotFound, "QR code not found"
	case stderrors.Is(err, core.ErrUnauthorized), stderrors.Is(err, core.ErrNotOwner):
		status, message = http.StatusUnauthorized, "Not authorized"
	case stderrors.Is(err, core.ErrForbidden):
		status, message = http.StatusForbidden, "Forbidden"
	case stderrors.Is(err, core.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	default:
		log.Error("request failed", sl.Err(err))
	}
	if status != http.StatusInternalServerError {
		log.Debug(message, sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(message))
}
