// Package middleware holds echo middleware shared by the HTTP API.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultRPS is the default sustained request rate per key.
	DefaultRPS = 1.0
	// DefaultBurst is the default burst size per key.
	DefaultBurst = 3
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key (typically a user ID).
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*limiterEntry
	rps    rate.Limit
	burst  int
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter. Non-positive values fall back to defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*limiterEntry),
		rps:    rate.Limit(rps),
		burst:  burst,
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limits[key]; ok {
		e.lastSeen = rl.now()
		return e.limiter
	}

	e := &limiterEntry{
		limiter:  rate.NewLimiter(rl.rps, rl.burst),
		lastSeen: rl.now(),
	}
	rl.limits[key] = e
	return e.limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Prune drops limiters idle for longer than maxIdle.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, e := range rl.limits {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// KeyFunc extracts the limiter key from a request. An empty key skips limiting.
type KeyFunc func(c echo.Context) string

// ParamKey keys requests by a path parameter.
func ParamKey(name string) KeyFunc {
	return func(c echo.Context) string {
		return c.Param(name)
	}
}

// RateLimit rejects requests over the per-key budget with 429.
func RateLimit(rl *RateLimiter, keyFunc KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFunc(c)
			if key == "" || rl.Allow(key) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"code":    "RATE_LIMIT_EXCEEDED",
				"message": "too many requests, please slow down",
			})
		}
	}
}
