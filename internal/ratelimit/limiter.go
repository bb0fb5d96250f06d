// Package ratelimit implements fixed-window request limits keyed by scope and client.
package ratelimit

import (
	"context" // Redis call context
	"fmt"     // Key formatting
	"math"    // Retry-After rounding
	"strings" // Prefix cleanup
	"sync"    // Window map lock
	"time"    // Windows and retry delays

	"github.com/redis/go-redis/v9" // Redis client and Lua scripts
	"golang.org/x/time/rate"       // Throttled eviction
)

// Limiter decides whether one more request for subject fits in scope's budget.
type Limiter interface {
	Allow(ctx context.Context, scope, subject string) (allowed bool, retryAfter time.Duration, err error)
}

// Rule is the budget for a scope.
type Rule struct {
	Limit  int           // Requests allowed per window
	Window time.Duration // Window length
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Redis counts requests in Redis so limits hold across server instances.
type Redis struct {
	client redis.UniversalClient // Redis connection
	prefix string                // Key namespace
	rules  map[string]Rule       // Budget per scope
}

// NewRedis returns a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, prefix string, rules map[string]Rule) *Redis {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "roundup:rate_limit"
	}
	return &Redis{client: client, prefix: prefix, rules: rules}
}

func (r *Redis) Allow(ctx context.Context, scope, subject string) (bool, time.Duration, error) {
	rule, ok := r.rules[scope]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 || subject == "" {
		return true, 0, nil
	}
	windowMs := rule.Window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}
	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	raw, err := rateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}
	if int(count) <= rule.Limit {
		return true, 0, nil
	}
	retry := time.Duration(math.Ceil(float64(ttlMs)/1000.0)) * time.Second
	if retry < time.Second {
		retry = time.Second
	}
	return false, retry, nil
}

// Memory counts requests per scope and subject in process, one fixed window at a time.
type Memory struct {
	mu      sync.Mutex
	rules   map[string]Rule    // Budget per scope
	windows map[string]*window // Open windows by scope and subject
	sweep   rate.Sometimes     // Throttles eviction of finished windows
	now     func() time.Time   // Clock, replaced in tests
}

type window struct {
	ends  time.Time // First instant of the next window
	count int       // Requests seen in this window
}

// NewMemory returns an in-process limiter with the same fixed-window semantics as Redis.
func NewMemory(rules map[string]Rule) *Memory {
	return &Memory{
		rules:   rules,
		windows: make(map[string]*window),
		sweep:   rate.Sometimes{Interval: time.Minute},
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, scope, subject string) (bool, time.Duration, error) {
	rule, ok := m.rules[scope]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 || subject == "" {
		return true, 0, nil
	}
	now := m.now()
	key := scope + ":" + subject

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep.Do(func() { m.evict(now) })

	w, ok := m.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(rule.Window)}
		m.windows[key] = w
	}
	w.count++
	if w.count <= rule.Limit {
		return true, 0, nil
	}
	retry := time.Duration(math.Ceil(w.ends.Sub(now).Seconds())) * time.Second
	if retry < time.Second {
		retry = time.Second
	}
	return false, retry, nil
}

// evict drops windows that ended before now. Callers hold m.mu.
func (m *Memory) evict(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.ends) {
			delete(m.windows, key)
		}
	}
}
