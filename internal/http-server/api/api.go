package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"qrtrack/internal/config"
	"qrtrack/internal/http-server/handlers/analytics"
	"qrtrack/internal/http-server/handlers/errors"
	"qrtrack/internal/http-server/handlers/health"
	"qrtrack/internal/http-server/handlers/redirect"
	"qrtrack/internal/http-server/handlers/scans"
	"qrtrack/internal/http-server/middleware/authenticate"
	"qrtrack/internal/http-server/middleware/ratelimit"
	"qrtrack/internal/http-server/middleware/timeout"
	"qrtrack/lib/sl"
)

const requestTimeout = 5 * time.Second

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	redirect.Core
	scans.Core
	analytics.Core
}

// NewRouter builds the routes; limiter may be nil
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, limiter ratelimit.Limiter) http.Handler {
	router := chi.NewRouter()
	router.Use(timeout.Timeout(requestTimeout))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Group(func(public chi.Router) {
		public.Use(ratelimit.New(log, limiter, conf.RateLimit.TrustedProxies))
		public.Get("/r", redirect.AdHoc(log, handler))
		public.Get("/r/{id}", redirect.Scan(log, handler, conf.UnavailablePath))
	})

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Use(render.SetContentType(render.ContentTypeJSON))
		rootApi.Get("/health", health.Check())

		rootApi.Group(func(private chi.Router) {
			private.Use(authenticate.New(log, handler))
			private.Get("/qrcodes/{id}/scans", scans.ByQRCode(log, handler))
			private.Get("/qrcodes/{id}/analytics", analytics.ByQRCode(log, handler))
			private.Get("/scans", scans.Recent(log, handler))
			private.Get("/scans/analytics", analytics.ForUser(log, handler))
		})
	})

	return router
}

func New(conf *config.Config, log *slog.Logger, handler Handler, limiter ratelimit.Limiter) *Server {
	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	return &Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
		httpServer: &http.Server{
			Handler:      NewRouter(conf, log, handler, limiter),
			ErrorLog:     httpLog,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIp, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	s.log.Info("starting api server", slog.String("address", serverAddress))

	return s.httpServer.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api server")
	return s.httpServer.Shutdown(ctx)
}
