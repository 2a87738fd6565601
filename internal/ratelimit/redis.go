package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "qrtrack:rl:"

// counts requests in the current window, the first hit sets the expiry
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

type RedisLimiter struct {
	client *redis.Client
	rule   Rule
}

func NewRedisLimiter(client *redis.Client, rule Rule) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if !rule.valid() {
		return nil, fmt.Errorf("invalid rule: %d per %s", rule.Requests, rule.Window)
	}
	return &RedisLimiter{client: client, rule: rule}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := fixedWindowScript.Run(ctx, l.client, []string{keyPrefix + key}, l.rule.Window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("redis limiter: %w", err)
	}
	return count <= int64(l.rule.Requests), nil
}

// RetryAfter is the longest wait until the current window resets
func (l *RedisLimiter) RetryAfter() time.Duration {
	return l.rule.Window
}
