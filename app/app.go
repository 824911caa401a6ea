// Package app provides the server bootstrap: the echo instance, the ambient
// middleware, route registration and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/yshengliao/routekit/auth"
	"github.com/yshengliao/routekit/config"
	"github.com/yshengliao/routekit/middleware"
	"github.com/yshengliao/routekit/router"
	"go.uber.org/zap"
)

// ShutdownHook is a function that gets called during shutdown
type ShutdownHook func(ctx context.Context) error

// App represents the main application instance
type App struct {
	e               *echo.Echo
	config          *Config
	logger          *zap.Logger
	jwt             *auth.JWTService
	tables          []*router.Table
	shutdownHooks   []ShutdownHook
	shutdownTimeout time.Duration
	mu              sync.RWMutex
}

// Config is re-exported from the config package for convenience
type Config = config.Config

// Option defines a functional option for App
type Option func(*App) error

// NewApp creates a new application instance with the given options. Without
// WithConfig the defaults of config.DefaultConfig apply.
func NewApp(opts ...Option) (*App, error) {
	app := &App{
		e:             echo.New(),
		shutdownHooks: make([]ShutdownHook, 0),
	}

	// Apply all options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if app.config == nil {
		app.config = config.DefaultConfig()
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if app.logger == nil {
		logger, err := NewLogger(app.config.Logger)
		if err != nil {
			return nil, err
		}
		app.logger = logger
	}
	if app.jwt == nil {
		app.jwt = auth.NewJWTService(app.config.JWT.SecretKey, app.config.JWT.TokenTTL,
			auth.WithIssuer(app.config.JWT.Issuer))
	}
	if app.shutdownTimeout == 0 {
		app.shutdownTimeout = app.config.Server.ShutdownTimeout
	}
	if app.config.InsecureSecret() {
		app.logger.Warn("Using the built-in development JWT secret, tokens are not secure",
			zap.String("mode", app.config.Mode))
	}

	app.setupEcho()

	if !app.config.IsProduction() && app.config.Logger.Level == "debug" {
		app.registerDevelopmentRoutes()
	}

	return app, nil
}

// WithConfig sets the application configuration
func WithConfig(cfg *Config) Option {
	return func(app *App) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		app.config = cfg
		return nil
	}
}

// WithLogger sets the application logger
func WithLogger(logger *zap.Logger) Option {
	return func(app *App) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		app.logger = logger
		return nil
	}
}

// WithJWTService sets the service behind the default auth middleware
func WithJWTService(s *auth.JWTService) Option {
	return func(app *App) error {
		if s == nil {
			return fmt.Errorf("JWT service cannot be nil")
		}
		app.jwt = s
		return nil
	}
}

// WithShutdownTimeout sets the shutdown timeout duration
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *App) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive")
		}
		app.shutdownTimeout = timeout
		return nil
	}
}

// setupEcho configures the Echo instance with middleware and settings
func (app *App) setupEcho() {
	cfg := app.config.Server

	app.e.HideBanner = true
	app.e.HidePort = true
	app.e.Server.ReadTimeout = cfg.ReadTimeout
	app.e.Server.WriteTimeout = cfg.WriteTimeout
	app.e.Server.IdleTimeout = cfg.IdleTimeout
	app.e.HTTPErrorHandler = middleware.ErrorHandler(app.logger)

	// RequestID first so every log line and error carries it, the logger
	// outside Recovery so recovered panics are logged with their status.
	app.e.Use(middleware.RequestID())
	app.e.Use(middleware.RequestLogger(app.logger))
	if cfg.Recovery {
		app.e.Use(middleware.Recovery(app.logger))
	}
	if cfg.CORS {
		app.e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
		}))
	}
	app.e.Use(echomw.Secure())
	if cfg.BodyLimit != "" {
		app.e.Use(echomw.BodyLimit(cfg.BodyLimit))
	}
	if rl := app.config.RateLimit; rl.Rate > 0 {
		store := middleware.NewMemoryStore(rl.Rate, rl.Burst)
		app.OnShutdown(func(context.Context) error {
			store.Stop()
			return nil
		})
		app.e.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rate:  rl.Rate,
			Burst: rl.Burst,
			Store: store,
		}))
	}
	if cfg.HandlerTimeout > 0 {
		app.e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
			Timeout: cfg.HandlerTimeout,
		}))
	}
}

// Echo returns the underlying Echo instance
func (app *App) Echo() *echo.Echo {
	return app.e
}

// Config returns the validated configuration
func (app *App) Config() *Config {
	return app.config
}

// Logger returns the application logger
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// JWTService returns the service signing and verifying tokens
func (app *App) JWTService() *auth.JWTService {
	return app.jwt
}

// RegisterRoutes discovers, composes and mounts routes on the server. Routes
// requiring auth are guarded by the app's JWT service unless
// opts.AuthMiddleware is set. Call it before Run.
func (app *App) RegisterRoutes(ctx context.Context, opts router.Options) (*router.Table, error) {
	if opts.AuthMiddleware == nil {
		opts.AuthMiddleware = auth.Middleware(app.jwt)
	}
	if opts.Logger == nil {
		opts.Logger = app.logger
	}

	table, err := router.RegisterRoutes(ctx, app.e, opts)
	if err != nil {
		return nil, err
	}

	app.mu.Lock()
	app.tables = append(app.tables, table)
	app.mu.Unlock()
	return table, nil
}

// Run starts the HTTP server and blocks until it stops. A server stopped by
// Shutdown returns nil.
func (app *App) Run() error {
	address := app.config.Server.Address
	if address == "" {
		address = ":8080"
	}

	app.logger.Info("Starting server", zap.String("address", address))

	if err := app.e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start runs the server until ctx is done, then shuts it down gracefully.
func (app *App) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// RegisterShutdownHook registers a function to be called during shutdown
func (app *App) RegisterShutdownHook(hook ShutdownHook) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.shutdownHooks = append(app.shutdownHooks, hook)
}

// OnShutdown is a convenience method for registering shutdown hooks
func (app *App) OnShutdown(fn func(context.Context) error) {
	app.RegisterShutdownHook(ShutdownHook(fn))
}

// Shutdown stops accepting requests, drains the in-flight ones and then runs
// the shutdown hooks.
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Info("Starting graceful shutdown")

	// Create a timeout context if none provided
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, app.shutdownTimeout)
		defer cancel()
	}

	if err := app.e.Shutdown(ctx); err != nil {
		app.logger.Error("Error shutting down HTTP server", zap.Error(err))
		// Server shutdown error takes precedence
		return err
	}

	if err := app.runShutdownHooks(ctx); err != nil {
		app.logger.Error("Error running shutdown hooks", zap.Error(err))
		return err
	}

	app.logger.Info("Graceful shutdown completed")
	return nil
}

// runShutdownHooks executes all registered shutdown hooks
func (app *App) runShutdownHooks(ctx context.Context) error {
	app.mu.RLock()
	hooks := make([]ShutdownHook, len(app.shutdownHooks))
	copy(hooks, app.shutdownHooks)
	app.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}

	app.logger.Debug("Running shutdown hooks", zap.Int("count", len(hooks)))

	// Run hooks in parallel with error collection
	var wg sync.WaitGroup
	errChan := make(chan error, len(hooks))

	for i, hook := range hooks {
		wg.Add(1)
		go func(idx int, h ShutdownHook) {
			defer wg.Done()
			if err := h(ctx); err != nil {
				errChan <- fmt.Errorf("shutdown hook %d failed: %w", idx, err)
			}
		}(i, hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown hooks timed out: %w", ctx.Err())
	}

	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// registerDevelopmentRoutes registers development-only routes
func (app *App) registerDevelopmentRoutes() {
	app.e.GET("/_routes", app.routesHandler)
	app.logger.Info("Development routes registered", zap.String("routes", "/_routes"))
}

// routeInfo describes one registered route and its chain
type routeInfo struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Source string   `json:"source,omitempty"`
	Auth   bool     `json:"auth"`
	Chain  []string `json:"chain"`
}

// routesHandler returns debug information about all registered routes
func (app *App) routesHandler(c echo.Context) error {
	app.mu.RLock()
	var routes []routeInfo
	for _, table := range app.tables {
		for _, entry := range table.Routes() {
			routes = append(routes, routeInfo{
				Method: string(entry.Method),
				Path:   entry.Path,
				Source: entry.Definition.Source,
				Auth:   entry.Definition.Auth,
				Chain:  entry.Chain.Names(),
			})
		}
	}
	app.mu.RUnlock()

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	return c.JSON(http.StatusOK, map[string]any{
		"total_routes": len(routes),
		"routes":       routes,
	})
}
