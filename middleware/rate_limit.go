package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// KeyFunc selects the bucket a request is counted against.
type KeyFunc func(c echo.Context) string

// KeyByIP counts requests per client IP.
func KeyByIP(c echo.Context) string {
	return c.RealIP()
}

// KeyByIPAndMethod counts requests per client IP and channel method, so a
// caller polling getAccessToken cannot starve its own signOut.
func KeyByIPAndMethod(c echo.Context) string {
	return c.RealIP() + "|" + c.Param("method")
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	rate     rate.Limit
	burst    int
	key      KeyFunc
}

// NewRateLimiter creates a limiter. Stale buckets are evicted until ctx is
// done.
func NewRateLimiter(ctx context.Context, r rate.Limit, burst int, key KeyFunc) *RateLimiter {
	if key == nil {
		key = KeyByIP
	}
	rl := &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		rate:     r,
		burst:    burst,
		key:      key,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, exists := rl.limiters[key]; exists {
		l.lastSeen = time.Now()
		return l.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = &keyLimiter{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(5 * time.Minute)
		}
	}
}

func (rl *RateLimiter) evict(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, l := range rl.limiters {
		if time.Since(l.lastSeen) > idle {
			delete(rl.limiters, key)
		}
	}
}

// Middleware returns an Echo middleware that enforces the rate limit.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.getLimiter(rl.key(c)).Allow() {
				retryAfter := max(int(1.0/float64(rl.rate)), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
