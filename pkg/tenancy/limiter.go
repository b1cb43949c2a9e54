// Package tenancy enforces per-org scoping and rate limits across the
// platform: an org may not address a module privately owned by another
// org (modules owned by no org stay shared), and every org's call
// volume is bounded by a token bucket so one tenant cannot starve
// another's share of the gateway or sandbox pool.
package tenancy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy bounds one org's call rate: RPM is the steady-state refill
// rate and Burst is the bucket capacity above it.
type Policy struct {
	RPM   int
	Burst int
}

// Limiter abstracts the storage backing a token-bucket rate limit so a
// single-process deployment can use the in-memory store and a
// multi-process one can share state through Redis without either side
// changing call sites.
type Limiter interface {
	// Allow reports whether orgID may spend cost tokens against policy.
	Allow(ctx context.Context, orgID string, policy Policy, cost int) (bool, error)
}

// Evaluate is the call-site entry point: it fails closed when no
// limiter is configured, since an unconfigured limiter is a wiring bug
// and unmetered org traffic is not an acceptable fallback.
func Evaluate(ctx context.Context, limiter Limiter, orgID string, policy Policy) error {
	if limiter == nil {
		return fmt.Errorf("tenancy: no limiter configured")
	}
	allowed, err := limiter.Allow(ctx, orgID, policy, 1)
	if err != nil {
		return fmt.Errorf("tenancy: limiter check failed: %w", err)
	}
	if !allowed {
		return fmt.Errorf("tenancy: rate limit exceeded for org %q", orgID)
	}
	return nil
}

// tokenBucket is a thread-safe, single-org token bucket.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(ratePerSec float64, capacity int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: ratePerSec,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow(cost int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= float64(cost) {
		tb.tokens -= float64(cost)
		return true
	}
	return false
}

// InMemoryLimiter serves a single process; each org gets its own bucket.
type InMemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

// NewInMemoryLimiter builds an empty limiter.
func NewInMemoryLimiter() *InMemoryLimiter {
	return &InMemoryLimiter{buckets: make(map[string]*tokenBucket)}
}

func (l *InMemoryLimiter) Allow(ctx context.Context, orgID string, policy Policy, cost int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tb, ok := l.buckets[orgID]
	if !ok {
		rate := ratePerSecond(policy)
		tb = newTokenBucket(rate, policy.Burst)
		l.buckets[orgID] = tb
	}
	return tb.allow(cost), nil
}

// redisBucketScript runs the refill-then-consume sequence atomically
// so concurrent gateway instances never double-spend the same org's
// budget between a read and a write.
var redisBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = tokens + elapsed * rate
    if tokens > capacity then
        tokens = capacity
    end
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return {allowed, tokens}
`)

// RedisLimiter shares bucket state across every orchestrator or
// gateway process through a single Redis instance.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter wraps an already-configured go-redis client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, orgID string, policy Policy, cost int) (bool, error) {
	key := fmt.Sprintf("tenancy:limiter:%s", orgID)
	rate := ratePerSecond(policy)
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := redisBucketScript.Run(ctx, l.client, []string{key}, rate, policy.Burst, cost, now).Result()
	if err != nil {
		return false, fmt.Errorf("tenancy: redis limiter: %w", err)
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return false, fmt.Errorf("tenancy: unexpected lua script response")
	}
	allowedVal, _ := results[0].(int64)
	return allowedVal == 1, nil
}

func ratePerSecond(policy Policy) float64 {
	rate := float64(policy.RPM) / 60.0
	if rate <= 0 {
		rate = 1.0
	}
	return rate
}
