// Package ratelimit counts requests per key over a fixed window.
//
// Redis backs the limit when several instances share traffic; otherwise a
// per-process token bucket is used.
package ratelimit

import (
	"context"
	"time"
)

type Limiter interface {
	// Allow reports whether one more request for key fits the limit
	Allow(ctx context.Context, key string) (bool, error)
	// RetryAfter is how long a rejected client should wait
	RetryAfter() time.Duration
}

// Rule allows Requests per Window
type Rule struct {
	Requests int
	Window   time.Duration
}

func (r Rule) valid() bool {
	return r.Requests > 0 && r.Window > 0
}
