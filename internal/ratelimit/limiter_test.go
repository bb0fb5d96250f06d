package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exhaust(t *testing.T, l Limiter, scope, subject string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ok, _, err := l.Allow(context.Background(), scope, subject)
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i+1)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedis(client, "", map[string]Rule{"auth": {Limit: 3, Window: time.Minute}})

	exhaust(t, l, "auth", "1.2.3.4", 3)
	ok, retry, err := l.Allow(context.Background(), "auth", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	// Other clients and unknown scopes are unaffected
	exhaust(t, l, "auth", "5.6.7.8", 1)
	exhaust(t, l, "other", "1.2.3.4", 10)

	mr.FastForward(time.Minute)
	exhaust(t, l, "auth", "1.2.3.4", 1)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemory(map[string]Rule{"auth": {Limit: 2, Window: time.Hour}})

	exhaust(t, l, "auth", "ip", 2)
	ok, retry, err := l.Allow(context.Background(), "auth", "ip")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, retry, time.Second)

	exhaust(t, l, "auth", "other-ip", 2)
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemory(map[string]Rule{"auth": {Limit: 2, Window: 2 * time.Second}})
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }

	allowed := 0
	for elapsed := time.Duration(0); elapsed < 1900*time.Millisecond; elapsed += 50 * time.Millisecond {
		now = start.Add(elapsed)
		ok, _, err := l.Allow(context.Background(), "auth", "ip")
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)

	now = start.Add(1500 * time.Millisecond)
	ok, retry, err := l.Allow(context.Background(), "auth", "ip")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Second, retry)

	// A new window opens once the old one ends
	now = start.Add(2 * time.Second)
	exhaust(t, l, "auth", "ip", 2)
}

func TestMemoryLimiterEvictsFinishedWindows(t *testing.T) {
	l := NewMemory(map[string]Rule{"auth": {Limit: 5, Window: time.Second}})
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }

	exhaust(t, l, "auth", "a", 1)
	exhaust(t, l, "auth", "b", 1)
	assert.Len(t, l.windows, 2)

	l.evict(start.Add(500 * time.Millisecond))
	assert.Len(t, l.windows, 2)

	l.evict(start.Add(time.Second))
	assert.Empty(t, l.windows)
}
