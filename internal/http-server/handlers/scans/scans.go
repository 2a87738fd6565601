package scans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qrtrack/entity"
	"qrtrack/internal/http-server/handlers/errors"
	"qrtrack/lib/api/cont"
	"qrtrack/lib/api/response"
	"qrtrack/lib/sl"
)

type Core interface {
	QRCodeScans(ctx context.Context, user *entity.User, id string) ([]*entity.Scan, error)
	UserScans(ctx context.Context, user *entity.User) ([]*entity.ScanView, error)
}

// ByQRCode lists the scans of one code, newest first
func ByQRCode(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.scans")
		id := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("qr_code", id),
		)

		list, err := handler.QRCodeScans(r.Context(), cont.GetUser(r.Context()), id)
		if err != nil {
			errors.Render(w, r, log, err)
			return
		}

		log.With(slog.Int("count", len(list))).Debug("qr code scans")
		render.JSON(w, r, response.OkList(list, len(list)))
	}
}

// Recent lists the latest scans across the caller's codes
func Recent(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.scans")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		list, err := handler.UserScans(r.Context(), cont.GetUser(r.Context()))
		if err != nil {
			errors.Render(w, r, log, err)
			return
		}

		render.JSON(w, r, response.OkList(list, len(list)))
	}
}
