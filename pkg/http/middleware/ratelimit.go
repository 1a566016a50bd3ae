package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than
// idle are dropped.
type KeyedLimiter struct {
	mu      sync.Mutex
	m       map[string]*visitor
	limit   rate.Limit
	burst   int
	idle    time.Duration
	lastGC  time.Time
	nowFunc func() time.Time
}

// NewKeyedLimiter allows perMinute requests per key with the given burst.
func NewKeyedLimiter(perMinute float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		m:       make(map[string]*visitor),
		limit:   rate.Limit(perMinute / 60),
		burst:   max(burst, 1),
		idle:    10 * time.Minute,
		nowFunc: time.Now,
	}
}

// Allow consumes one token for key.
func (k *KeyedLimiter) Allow(key string) bool {
	now := k.nowFunc()
	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.lastGC) > k.idle {
		for key, v := range k.m {
			if now.Sub(v.seen) > k.idle {
				delete(k.m, key)
			}
		}
		k.lastGC = now
	}

	v, ok := k.m[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(k.limit, k.burst)}
		k.m[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

// RateLimit rejects requests over the per-IP budget with 429.
func RateLimit(k *KeyedLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !k.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
