package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoggerConfig contains configuration for the logger middleware
type LoggerConfig struct {
	// Logger is the zap logger to use
	Logger *zap.Logger
	// SkipPaths is a list of paths to skip logging
	SkipPaths []string
}

// DefaultLoggerConfig returns the default configuration
func DefaultLoggerConfig(logger *zap.Logger) *LoggerConfig {
	return &LoggerConfig{
		Logger:    logger,
		SkipPaths: []string{"/health"},
	}
}

// RequestLogger returns a middleware that logs HTTP requests
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(DefaultLoggerConfig(logger))
}

// RequestLoggerWithConfig returns a middleware with custom configuration.
//
// An error returned by the chain is handed to the error handler before the
// line is written, so the logged status is the one the client receives.
func RequestLoggerWithConfig(config *LoggerConfig) echo.MiddlewareFunc {
	if config == nil || config.Logger == nil {
		panic("middleware: RequestLogger requires a logger")
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skip[req.URL.Path] {
				return next(c)
			}

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("request_id", GetRequestID(c)),
				zap.Int64("bytes_out", c.Response().Size),
			}

			switch {
			case status >= http.StatusInternalServerError:
				config.Logger.Error("Server error", fields...)
			case status >= http.StatusBadRequest:
				config.Logger.Warn("Client error", fields...)
			default:
				config.Logger.Info("Request", fields...)
			}
			return nil
		}
	}
}
