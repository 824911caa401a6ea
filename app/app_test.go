package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/routekit/app"
	"github.com/yshengliao/routekit/auth"
	"github.com/yshengliao/routekit/config"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.SecretKey = "app-test-secret"
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) (*app.App, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	a, err := app.NewApp(app.WithConfig(cfg), app.WithLogger(zap.New(core)))
	require.NoError(t, err)
	return a, logs
}

func do(a *app.App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo().ServeHTTP(rec, req)
	return rec
}

var routeFiles = fstest.MapFS{
	"secret.yaml": {Data: []byte("method: GET\npath: /secret\nauth: true\nhandler: whoami\n")},
	"echo.yaml":   {Data: []byte("method: POST\npath: /echo\nhandler: echo\n")},
	"panic.yaml":  {Data: []byte("method: GET\npath: /panic\nhandler: panic\n")},
}

func testCatalog() *route.Catalog {
	return route.NewCatalog().
		AddHandler("whoami", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"sub": auth.GetSubject(c)})
		}).
		AddHandler("echo", func(c echo.Context) error {
			var body map[string]any
			if err := c.Bind(&body); err != nil {
				return err
			}
			return c.JSON(http.StatusOK, body)
		}).
		AddHandler("panic", func(c echo.Context) error {
			panic("handler exploded")
		})
}

func TestNewApp(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		a, err := app.NewApp(app.WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.Equal(t, config.ModeDevelopment, a.Config().Mode)
		assert.Equal(t, config.DevSecretKey, a.Config().JWT.SecretKey)
		assert.NotNil(t, a.JWTService())
		assert.True(t, a.Echo().HideBanner)
	})

	t.Run("WarnsAboutDevelopmentSecret", func(t *testing.T) {
		cfg := config.DefaultConfig()
		_, logs := newApp(t, cfg)
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("development JWT secret").Len())
	})

	t.Run("ProductionWithoutSecretFails", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Mode = config.ModeProduction
		_, err := app.NewApp(app.WithConfig(cfg), app.WithLogger(zap.NewNop()))
		assert.Error(t, err)
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := app.NewApp(app.WithConfig(nil))
		assert.Error(t, err)
		_, err = app.NewApp(app.WithLogger(nil))
		assert.Error(t, err)
		_, err = app.NewApp(app.WithJWTService(nil))
		assert.Error(t, err)
		_, err = app.NewApp(app.WithShutdownTimeout(0))
		assert.Error(t, err)
	})
}

func TestRegisterRoutes(t *testing.T) {
	a, logs := newApp(t, testConfig())

	table, err := a.RegisterRoutes(context.Background(), router.Options{
		Prefix:   "/api/v1",
		RoutesFS: routeFiles,
		Catalog:  testCatalog(),
	})
	require.NoError(t, err)
	assert.Len(t, table.Routes(), 3)
	assert.Equal(t, 3, logs.FilterMessage("Registered route").Len())

	t.Run("DefaultAuthenticator", func(t *testing.T) {
		rec := do(a, httptest.NewRequest(http.MethodGet, "/api/v1/secret", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized: Missing token"}`, rec.Body.String())

		token, err := a.JWTService().Sign(map[string]any{"sub": "user-7"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/secret", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec = do(a, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sub":"user-7"}`, rec.Body.String())
	})

	t.Run("PanicBecomesGeneric500", func(t *testing.T) {
		rec := do(a, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "exploded")
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		rec := do(a, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
	})

	t.Run("SecureHeaders", func(t *testing.T) {
		rec := do(a, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
		assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestRegisterRoutesConfigurationError(t *testing.T) {
	a, _ := newApp(t, testConfig())

	_, err := a.RegisterRoutes(context.Background(), router.Options{
		RoutesFS: fstest.MapFS{"bad.yaml": {Data: []byte("method: GET\npath: /x\nhandler: missing\n")}},
		Catalog:  testCatalog(),
	})
	require.Error(t, err)
	assert.True(t, route.IsConfigurationError(err))
	assert.Empty(t, a.Echo().Routes())
}

func TestBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.BodyLimit = "1K"
	a, _ := newApp(t, cfg)
	_, err := a.RegisterRoutes(context.Background(), router.Options{RoutesFS: routeFiles, Catalog: testCatalog()})
	require.NoError(t, err)

	small := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"Louvre"}`))
	small.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusOK, do(a, small).Code)

	large := httptest.NewRequest(http.MethodPost, "/echo",
		strings.NewReader(fmt.Sprintf(`{"name":%q}`, strings.Repeat("x", 2048))))
	large.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(a, large)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"Request Entity Too Large"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Rate = 1
	cfg.RateLimit.Burst = 1
	a, _ := newApp(t, cfg)
	defer a.Shutdown(context.Background())

	assert.Equal(t, http.StatusNotFound, do(a, httptest.NewRequest(http.MethodGet, "/a", nil)).Code)
	rec := do(a, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too Many Requests"}`, rec.Body.String())
}

func TestHandlerTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HandlerTimeout = 20 * time.Millisecond
	a, _ := newApp(t, cfg)

	a.Echo().GET("/slow", func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return fmt.Errorf("query places: %w", c.Request().Context().Err())
		case <-time.After(time.Second):
			return c.NoContent(http.StatusOK)
		}
	})
	a.Echo().GET("/fast", func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			return errors.New("no deadline")
		}
		return c.NoContent(http.StatusOK)
	})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"Service Unavailable"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(a, httptest.NewRequest(http.MethodGet, "/fast", nil)).Code)
}

func TestHandlerTimeoutDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HandlerTimeout = 0
	a, _ := newApp(t, cfg)

	a.Echo().GET("/", func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			return errors.New("unexpected deadline")
		}
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(a, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestDevelopmentRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Logger.Level = "debug"
	a, _ := newApp(t, cfg)
	_, err := a.RegisterRoutes(context.Background(), router.Options{
		Prefix:   "/api",
		RoutesFS: routeFiles,
		Catalog:  testCatalog(),
	})
	require.NoError(t, err)

	rec := do(a, httptest.NewRequest(http.MethodGet, "/_routes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total  int `json:"total_routes"`
		Routes []struct {
			Method string   `json:"method"`
			Path   string   `json:"path"`
			Auth   bool     `json:"auth"`
			Chain  []string `json:"chain"`
		} `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, "/api/echo", body.Routes[0].Path)
	assert.Equal(t, "/api/secret", body.Routes[2].Path)
	assert.True(t, body.Routes[2].Auth)
	assert.Equal(t, []string{"auth", "handler"}, body.Routes[2].Chain)

	t.Run("HiddenInProduction", func(t *testing.T) {
		cfg := testConfig()
		cfg.Mode = config.ModeProduction
		cfg.Logger.Level = "debug"
		a, _ := newApp(t, cfg)
		assert.Equal(t, http.StatusNotFound, do(a, httptest.NewRequest(http.MethodGet, "/_routes", nil)).Code)
	})
}

func TestShutdownHooks(t *testing.T) {
	a, _ := newApp(t, testConfig())

	var ran []string
	a.OnShutdown(func(context.Context) error {
		ran = append(ran, "store")
		return nil
	})
	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, []string{"store"}, ran)

	b, _ := newApp(t, testConfig())
	b.OnShutdown(func(context.Context) error { return errors.New("flush failed") })
	err := b.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestStart(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Address = "127.0.0.1:0"
	a, logs := newApp(t, cfg)
	a.Echo().GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	require.Eventually(t, func() bool { return a.Echo().ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + a.Echo().ListenerAddr().String() + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 1, logs.FilterMessage("Graceful shutdown completed").Len())
}

func TestNewLogger(t *testing.T) {
	logger, err := app.NewLogger(config.LoggerConfig{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = app.NewLogger(config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}
