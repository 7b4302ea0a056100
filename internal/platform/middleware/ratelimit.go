package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig bounds request throughput per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// Idle client entries older than this are dropped on the next sweep.
const clientTTL = 10 * time.Minute

type rlClient struct {
	tokens float64
	seen   time.Time
}

// ipLimiter is a token-bucket limiter keyed by client IP. One mutex guards
// the whole map; buckets refill lazily on each request, and stale entries
// are swept opportunistically so the map does not grow without bound.
type ipLimiter struct {
	mu        sync.Mutex
	clients   map[string]*rlClient
	rate      float64
	burst     float64
	lastSweep time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	return &ipLimiter{
		clients:   make(map[string]*rlClient),
		rate:      cfg.RequestsPerSecond,
		burst:     float64(cfg.BurstSize),
		lastSweep: time.Now(),
	}
}

// take refills the client's bucket for the time elapsed since its last
// request and spends one token. When the bucket is empty it reports how
// many seconds until a token becomes available.
func (l *ipLimiter) take(ip string) (ok bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > clientTTL {
		for key, cl := range l.clients {
			if now.Sub(cl.seen) > clientTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	cl, exists := l.clients[ip]
	if !exists {
		cl = &rlClient{tokens: l.burst}
		l.clients[ip] = cl
	} else {
		cl.tokens += now.Sub(cl.seen).Seconds() * l.rate
		if cl.tokens > l.burst {
			cl.tokens = l.burst
		}
	}
	cl.seen = now

	if cl.tokens >= 1 {
		cl.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 1
	}
	return false, int((1-cl.tokens)/l.rate) + 1
}

// RateLimit rejects clients that exceed cfg, keyed by real IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	limiter := newIPLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limitHeader)

			ok, retryAfter := limiter.take(c.RealIP())
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
