// Package health runs named readiness checks and serves their report.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultTimeout bounds a single check when the checker has no timeout.
const DefaultTimeout = 2 * time.Second

// Check reports the health of one component.
type Check func(ctx context.Context) Result

// Result represents the result of a health check
type Result struct {
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	DurationMS  int64          `json:"duration_ms"`
}

// Report is the outcome of one run of every check.
type Report struct {
	Status Status            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Checker manages health checks
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	now     func() time.Time
}

// NewChecker creates a checker running each check under timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		checks:  make(map[string]Check),
		timeout: timeout,
		now:     time.Now,
	}
}

// Register adds check under name, replacing any previous check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names returns the registered check names in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every check concurrently and folds the results. A check that
// outlives the timeout is reported unhealthy.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]Result, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range checks {
		wg.Add(1)
		go func(n string, check Check) {
			defer wg.Done()
			result := c.run(ctx, check)

			mu.Lock()
			results[n] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	return Report{Status: Overall(results), Checks: results}
}

func (c *Checker) run(ctx context.Context, check Check) Result {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.now()
	done := make(chan Result, 1)
	go func() { done <- check(checkCtx) }()

	var result Result
	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = Result{Status: StatusUnhealthy, Message: checkCtx.Err().Error()}
	}
	result.LastChecked = c.now()
	result.DurationMS = result.LastChecked.Sub(start).Milliseconds()
	return result
}

// Overall returns the worst status of results, healthy when there are none.
func Overall(results map[string]Result) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// Handler serves the report, 503 when any check is unhealthy.
func Handler(c *Checker) echo.HandlerFunc {
	return func(ec echo.Context) error {
		report := c.Check(ec.Request().Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		return ec.JSON(code, report)
	}
}

// Probe adapts an error returning probe into a Check.
func Probe(probe func(ctx context.Context) error) Check {
	return func(ctx context.Context) Result {
		if err := probe(ctx); err != nil {
			return Result{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Result{Status: StatusHealthy}
	}
}
