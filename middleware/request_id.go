package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDContextKey is the echo context key holding the request ID.
const RequestIDContextKey = "request_id"

// RequestIDConfig defines the config for RequestID middleware.
type RequestIDConfig struct {
	// Skipper defines a function to skip middleware.
	Skipper func(echo.Context) bool

	// Generator defines a function to generate an ID.
	// Optional. Defaults to UUID v4.
	Generator func() string

	// TargetHeader defines the header name to look for existing request ID.
	// Optional. Defaults to X-Request-ID
	TargetHeader string
}

// DefaultRequestIDConfig is the default RequestID middleware config.
var DefaultRequestIDConfig = RequestIDConfig{
	Skipper:      func(echo.Context) bool { return false },
	Generator:    generateRequestID,
	TargetHeader: echo.HeaderXRequestID,
}

func generateRequestID() string {
	return uuid.New().String()
}

// RequestID returns a middleware that reuses the incoming request ID or
// generates one, and exposes it on the response and the echo context.
func RequestID() echo.MiddlewareFunc {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

// RequestIDWithConfig returns a RequestID middleware with config.
func RequestIDWithConfig(config RequestIDConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultRequestIDConfig.Skipper
	}
	if config.Generator == nil {
		config.Generator = DefaultRequestIDConfig.Generator
	}
	if config.TargetHeader == "" {
		config.TargetHeader = DefaultRequestIDConfig.TargetHeader
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			rid := c.Request().Header.Get(config.TargetHeader)
			if rid == "" {
				rid = config.Generator()
			}

			c.Response().Header().Set(config.TargetHeader, rid)
			c.Set(RequestIDContextKey, rid)

			return next(c)
		}
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(c echo.Context) string {
	if rid, ok := c.Get(RequestIDContextKey).(string); ok {
		return rid
	}
	return ""
}
