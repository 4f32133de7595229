package auth

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting for login attempts. Each key gets a
// token bucket refilled at attempts/window; emptying the bucket blocks the
// key for blockTime.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	// Configuration
	limit     rate.Limit
	burst     int
	window    time.Duration
	blockTime time.Duration
	now       func() time.Time
}

type visitor struct {
	limiter   *rate.Limiter
	lastSeen  time.Time
	blockedAt time.Time
}

// NewRateLimiter creates a new rate limiter
// maxAttempts: max login attempts within the window
// window: time window for counting attempts
// blockTime: how long to block after exceeding max attempts
func NewRateLimiter(maxAttempts int, window, blockTime time.Duration) *RateLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(window / time.Duration(maxAttempts)),
		burst:     maxAttempts,
		window:    window,
		blockTime: blockTime,
		now:       time.Now,
	}
}

// DefaultRateLimiter creates a rate limiter with sensible defaults
// 5 attempts per 15 minutes, blocked for 15 minutes after exceeding
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 15*time.Minute, 15*time.Minute)
}

// Allow checks if the given key (IP address) is allowed to attempt login
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if !v.blockedAt.IsZero() {
		if now.Sub(v.blockedAt) < rl.blockTime {
			return false
		}
		// Block expired, start over with a full bucket
		v.limiter = rate.NewLimiter(rl.limit, rl.burst)
		v.blockedAt = time.Time{}
	}

	if !v.limiter.AllowN(now, 1) {
		v.blockedAt = now
		return false
	}
	return true
}

// RecordSuccess resets the attempt count for successful login
func (rl *RateLimiter) RecordSuccess(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.visitors, key)
}

// BlockedUntil returns when the block expires, or zero time if not blocked
func (rl *RateLimiter) BlockedUntil(key string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists || v.blockedAt.IsZero() {
		return time.Time{}
	}

	blockedUntil := v.blockedAt.Add(rl.blockTime)
	if rl.now().After(blockedUntil) {
		return time.Time{}
	}
	return blockedUntil
}

// Run removes idle entries periodically until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		idle := now.Sub(v.lastSeen) > rl.window
		blockExpired := v.blockedAt.IsZero() || now.Sub(v.blockedAt) > rl.blockTime
		if idle && blockExpired {
			delete(rl.visitors, key)
		}
	}
}

// Middleware returns an Echo middleware that rate limits requests
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()

			if !rl.Allow(key) {
				blockedUntil := rl.BlockedUntil(key)
				retryAfter := int(blockedUntil.Sub(rl.now()).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}

				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"status":      "failure",
					"error":       "too many login attempts",
					"retry_after": retryAfter,
				})
			}

			return next(c)
		}
	}
}
