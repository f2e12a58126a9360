package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// MemoryLimiter provides simple in-memory sliding window rate limiting.
// Keys whose last request has left the window are swept out at most once per
// window so the map stays bounded by the set of recently active IPs.
type MemoryLimiter struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	limit     int           // max requests
	window    time.Duration // time window
	lastSweep time.Time
}

// NewMemoryLimiter creates a new in-memory limiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow checks if a request is allowed for the given key
func (r *MemoryLimiter) Allow(_ context.Context, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	if now.Sub(r.lastSweep) > r.window {
		r.sweep(windowStart)
		r.lastSweep = now
	}

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// sweep drops keys with no request inside the window. Timestamps are
// append-ordered, so checking the newest one is enough.
func (r *MemoryLimiter) sweep(windowStart time.Time) {
	for key, times := range r.requests {
		if len(times) == 0 || !times[len(times)-1].After(windowStart) {
			delete(r.requests, key)
		}
	}
}

// RedisLimiter counts requests in fixed Redis windows so limits hold across
// server restarts and replicas. When Redis misbehaves it degrades to an
// in-memory limiter instead of refusing traffic.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	limit    int
	window   time.Duration
	fallback *MemoryLimiter
	logger   zerolog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		limit:    limit,
		window:   window,
		fallback: NewMemoryLimiter(limit, window),
		logger:   logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow checks if a request is allowed for the given key
func (r *RedisLimiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().Unix() / int64(r.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", r.prefix, key, bucket)

	pipe := r.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("redis unavailable, using in-memory limiter")
		return r.fallback.Allow(ctx, key)
	}

	return count.Val() <= int64(r.limit)
}

// rateLimitMiddleware rejects requests over the per-IP limit with 429
func rateLimitMiddleware(limiter Limiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": message,
			})
			return
		}
		c.Next()
	}
}
