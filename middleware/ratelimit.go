package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if a request is allowed
	Allow(key string) bool
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is the number of requests per second
	Rate float64

	// Burst is the maximum burst size
	Burst int

	// KeyFunc extracts the key from the request, the client IP by default
	KeyFunc func(c echo.Context) string

	// Skipper determines if rate limiting should be skipped
	Skipper func(c echo.Context) bool

	// Store is the rate limiter implementation
	Store RateLimiter
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryStore keeps one token bucket per key and forgets keys idle longer
// than its TTL.
type MemoryStore struct {
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	ticker   *time.Ticker
	stopped  chan struct{}
	stopOnce sync.Once
}

// MemoryStoreConfig holds configuration for MemoryStore
type MemoryStoreConfig struct {
	Rate            float64
	Burst           int
	CleanupInterval time.Duration
	TTL             time.Duration
}

// NewMemoryStore creates a store with a one minute cleanup interval and a ten
// minute TTL.
func NewMemoryStore(r float64, burst int) *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{
		Rate:            r,
		Burst:           burst,
		CleanupInterval: time.Minute,
		TTL:             10 * time.Minute,
	})
}

// NewMemoryStoreWithConfig creates a new in-memory rate limiter store with config
func NewMemoryStoreWithConfig(config MemoryStoreConfig) *MemoryStore {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}

	s := &MemoryStore{
		rate:     rate.Limit(config.Rate),
		burst:    config.Burst,
		ttl:      config.TTL,
		limiters: make(map[string]*limiterEntry),
		ticker:   time.NewTicker(config.CleanupInterval),
		stopped:  make(chan struct{}),
	}
	go s.cleanupRoutine()
	return s
}

// Allow checks if a request is allowed
func (s *MemoryStore) Allow(key string) bool {
	now := time.Now()

	s.mu.Lock()
	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.limiters[key] = entry
	}
	entry.lastAccess = now
	s.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Size returns the current number of limiters in the store
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Stop stops the cleanup routine
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.stopped)
	})
}

func (s *MemoryStore) cleanupRoutine() {
	for {
		select {
		case now := <-s.ticker.C:
			s.cleanup(now)
		case <-s.stopped:
			return
		}
	}
}

func (s *MemoryStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastAccess) > s.ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimit returns a middleware answering 429 once a key exceeds its budget.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	if config.Store == nil {
		config.Store = NewMemoryStore(config.Rate, config.Burst)
	}

	retryAfter := "1"
	if config.Rate > 0 && config.Rate < 1 {
		retryAfter = strconv.Itoa(int(1/config.Rate + 0.5))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			if !config.Store.Allow(config.KeyFunc(c)) {
				c.Response().Header().Set("Retry-After", retryAfter)
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
			}
			return next(c)
		}
	}
}
