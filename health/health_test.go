package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/routekit/health"
)

func TestChecker(t *testing.T) {
	t.Run("NoChecks", func(t *testing.T) {
		report := health.NewChecker(0).Check(context.Background())
		assert.Equal(t, health.StatusHealthy, report.Status)
		assert.Empty(t, report.Checks)
	})

	t.Run("WorstStatusWins", func(t *testing.T) {
		checker := health.NewChecker(time.Second)
		checker.Register("database", func(ctx context.Context) health.Result {
			return health.Result{Status: health.StatusHealthy, Message: "Database is healthy"}
		})
		checker.Register("cache", func(ctx context.Context) health.Result {
			return health.Result{Status: health.StatusDegraded}
		})

		report := checker.Check(context.Background())
		assert.Equal(t, health.StatusDegraded, report.Status)
		assert.Equal(t, health.StatusHealthy, report.Checks["database"].Status)
		assert.Equal(t, "Database is healthy", report.Checks["database"].Message)
		assert.False(t, report.Checks["cache"].LastChecked.IsZero())
		assert.Equal(t, []string{"cache", "database"}, checker.Names())

		checker.Register("queue", health.Probe(func(ctx context.Context) error {
			return errors.New("connection refused")
		}))
		report = checker.Check(context.Background())
		assert.Equal(t, health.StatusUnhealthy, report.Status)
		assert.Equal(t, "connection refused", report.Checks["queue"].Message)
	})

	t.Run("Timeout", func(t *testing.T) {
		checker := health.NewChecker(20 * time.Millisecond)
		release := make(chan struct{})
		defer close(release)
		checker.Register("slow", func(ctx context.Context) health.Result {
			<-release
			return health.Result{Status: health.StatusHealthy}
		})

		report := checker.Check(context.Background())
		assert.Equal(t, health.StatusUnhealthy, report.Status)
		assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks["slow"].Message)
	})
}

func TestHandler(t *testing.T) {
	checker := health.NewChecker(time.Second)
	healthy := true
	checker.Register("store", health.Probe(func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("store closed")
	}))

	e := echo.New()
	e.GET("/health", health.Handler(checker))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Contains(t, report.Checks, "store")

	healthy = false
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store closed")
}
