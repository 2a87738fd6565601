package analytics

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
	QRCodeAnalytics(ctx context.Context, user *entity.User, id string) (*entity.Analytics, error)
	UserAnalytics(ctx context.Context, user *entity.User) (*entity.Analytics, error)
}

func ByQRCode(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.analytics")
		id := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("qr_code", id),
		)

		result, err := handler.QRCodeAnalytics(r.Context(), cont.GetUser(r.Context()), id)
		if err != nil {
			errors.Render(w, r, log, err)
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}

func ForUser(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.analytics")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		result, err := handler.UserAnalytics(r.Context(), cont.GetUser(r.Context()))
		if err != nil {
			errors.Render(w, r, log, err)
			return
		}

		log.With(slog.Int64("total", result.TotalScans)).Debug("user analytics")
		render.JSON(w, r, response.Ok(result))
	}
}
