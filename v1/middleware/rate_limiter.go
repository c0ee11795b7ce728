package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request from key fits in the window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter implements a simple in-memory sliding window. Keys whose
// window has emptied are swept once per window.
type RateLimiter struct {
	requests  map[string][]time.Time
	mutex     sync.Mutex
	maxReqs   int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		maxReqs:  maxRequests,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks if a request from the given key is allowed
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	valid := rl.live(rl.requests[key], now)
	if len(valid) >= rl.maxReqs {
		rl.requests[key] = valid
		return false, nil
	}

	rl.requests[key] = append(valid, now)
	return true, nil
}

// live drops timestamps that have left the window
func (rl *RateLimiter) live(requests []time.Time, now time.Time) []time.Time {
	valid := requests[:0]
	for _, reqTime := range requests {
		if now.Sub(reqTime) < rl.window {
			valid = append(valid, reqTime)
		}
	}
	return valid
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, requests := range rl.requests {
		if valid := rl.live(requests, now); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
	rl.lastSweep = now
}

// RedisRateLimiter is a fixed-window limiter shared by every replica
type RedisRateLimiter struct {
	client  *redis.Client
	prefix  string
	maxReqs int
	window  time.Duration
}

// NewRedisRateLimiter creates a limiter that counts in redis
func NewRedisRateLimiter(client *redis.Client, prefix string, maxRequests int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, maxReqs: maxRequests, window: window}
}

// Allow increments the counter for key's current window
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(rl.window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, bucket)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(rl.maxReqs), nil
}

// RateLimitMiddleware limits requests per client IP. When the limiter itself
// fails the request is let through.
func RateLimitMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientIP)
			if err != nil {
				slog.Warn("Rate limiter unavailable", "ip", clientIP, "error", err)
				allowed = true
			}
			if !allowed {
				slog.Warn("Rate limit exceeded", "ip", clientIP, "path", r.URL.Path)
				utils.RespondWithError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
