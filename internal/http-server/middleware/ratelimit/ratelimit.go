package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"qrtrack/internal/clientmeta"
	"qrtrack/lib/sl"
)

const checkTimeout = 100 * time.Millisecond

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RetryAfter() time.Duration
}

// New limits requests per client address. The key is the connection peer, or the
// hop appended by the outermost of trustedProxies reverse proxies. Limiter errors
// let the request through.
func New(log *slog.Logger, limiter Limiter, trustedProxies int) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.ratelimit")
	log.With(mod).Info("rate limit middleware initialized", slog.Int("trusted_proxies", trustedProxies))

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			ip := clientmeta.PeerIP(clientmeta.FromHTTP(r), trustedProxies)
			if ip == "" {
				ip = r.RemoteAddr
			}

			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			allowed, err := limiter.Allow(ctx, ip)
			cancel()

			if err != nil {
				log.With(
					mod,
					slog.String("request_id", middleware.GetReqID(r.Context())),
				).Warn("rate limit check", sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				log.With(
					mod,
					sl.IP(ip),
					slog.String("path", r.URL.Path),
				).Debug("rate limit exceeded")
				w.Header().Set("Retry-After", retryAfter(limiter.RetryAfter()))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// retryAfter renders whole seconds, at least one
func retryAfter(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
