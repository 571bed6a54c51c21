package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/exhibitor-leads/internal/config"
)

// RateLimit applies a token bucket per client. Authenticated requests are
// keyed by operator, the rest by client IP. A disabled config passes through.
func RateLimit(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if !cfg.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	store := newLimiterStore(cfg, time.Now)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := OperatorFromContext(c)
			if key == "" {
				key = c.RealIP()
			}
			if !store.allow(key) {
				return deny(c, http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiterStore keeps one limiter per key. A bucket left idle for a full
// interval has refilled, so it is dropped and recreated on the next request.
type limiterStore struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterStore(cfg config.RateLimitConfig, now func() time.Time) *limiterStore {
	return &limiterStore{
		every:     rate.Every(cfg.PerRequest()),
		burst:     cfg.Requests,
		idle:      cfg.Interval,
		now:       now,
		entries:   make(map[string]*limiterEntry),
		lastSweep: now(),
	}
}

func (s *limiterStore) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}
	entry, ok := s.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.every, s.burst)}
		s.entries[key] = entry
	}
	entry.seen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *limiterStore) sweep(now time.Time) {
	for key, entry := range s.entries {
		if now.Sub(entry.seen) >= s.idle {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
