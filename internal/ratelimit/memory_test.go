package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	l, err := NewMemoryLimiter(Rule{Requests: 3, Window: time.Minute})
	require.NoError(t, err)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(context.Background(), "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(context.Background(), "203.0.113.1")
	assert.False(t, ok)

	ok, _ = l.Allow(context.Background(), "203.0.113.2")
	assert.True(t, ok, "keys are limited independently")

	now = now.Add(21 * time.Second)
	ok, _ = l.Allow(context.Background(), "203.0.113.1")
	assert.True(t, ok, "one token refilled after a third of the window")
	assert.Equal(t, 20*time.Second, l.RetryAfter())
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	l, err := NewMemoryLimiter(Rule{Requests: 1, Window: time.Second})
	require.NoError(t, err)
	now := time.Now()
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 2, l.size())

	now = now.Add(idleTTL + time.Second)
	_, _ = l.Allow(context.Background(), "b")
	l.cleanup()
	assert.Equal(t, 1, l.size())
}

func TestInvalidRule(t *testing.T) {
	_, err := NewMemoryLimiter(Rule{})
	assert.Error(t, err)
	_, err = NewRedisLimiter(nil, Rule{Requests: 1, Window: time.Second})
	assert.Error(t, err)
}
