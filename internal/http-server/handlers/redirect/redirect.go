package redirect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qrtrack/entity"
	"qrtrack/impl/core"
	"qrtrack/internal/clientmeta"
	"qrtrack/internal/resolver"
	"qrtrack/lib/sl"
)

type Core interface {
	ScanQRCode(ctx context.Context, id string, req clientmeta.Request) (*core.ScanOutcome, error)
	AdHocRedirect(ctx context.Context, redirect *entity.AdHocRedirect, req clientmeta.Request) error
}

// Scan serves GET /r/{id}; every failure here is plain text
func Scan(logger *slog.Logger, handler Core, unavailablePath string) http.HandlerFunc {
	unavailablePath = strings.TrimRight(unavailablePath, "/")

	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.redirect")
		id := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("qr_code", id),
		)

		outcome, err := handler.ScanQRCode(r.Context(), id, clientmeta.FromHTTP(r))
		if errors.Is(err, core.ErrNotFound) {
			log.Debug("qr code not found")
			http.Error(w, "QR code not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("scan qr code", sl.Err(err))
			http.Error(w, "Redirect failed", http.StatusInternalServerError)
			return
		}

		if outcome.Action == nil {
			location := fmt.Sprintf("%s/%s?reason=%s", unavailablePath, url.PathEscape(id), outcome.Status.Reason())
			http.Redirect(w, r, location, http.StatusFound)
			return
		}

		serve(w, r, outcome.Action)
	}
}

func serve(w http.ResponseWriter, r *http.Request, action resolver.Action) {
	switch a := action.(type) {
	case resolver.Redirect:
		http.Redirect(w, r, a.URL, http.StatusFound)
	case resolver.Inline:
		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(a.Body)
	case resolver.Attachment:
		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(a.Body)
	}
}

// AdHoc serves GET /r?u=<url>
func AdHoc(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.redirect")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		redirect := &entity.AdHocRedirect{Target: r.URL.Query().Get("u")}
		if redirect.Target == "" {
			http.Error(w, "Missing url", http.StatusBadRequest)
			return
		}
		log = log.With(slog.String("target", redirect.Target))

		err := handler.AdHocRedirect(r.Context(), redirect, clientmeta.FromHTTP(r))
		if errors.Is(err, core.ErrValidation) {
			log.Debug("invalid redirect target", sl.Err(err))
			http.Error(w, "Invalid url", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error("ad-hoc redirect", sl.Err(err))
			http.Error(w, "Redirect failed", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, redirect.Target, http.StatusFound)
	}
}
