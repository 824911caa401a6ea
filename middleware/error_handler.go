// Package middleware provides the ambient echo middleware and the process-wide
// error handler.
package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
	"go.uber.org/zap"
)

// ErrorHandlerConfig contains configuration for the error handler
type ErrorHandlerConfig struct {
	// Logger is used to log errors
	Logger *zap.Logger
	// ExposeHTTPErrorMessages renders the message of *echo.HTTPError values
	// below 500. When false every such error uses the status text.
	ExposeHTTPErrorMessages bool
}

// DefaultErrorHandlerConfig returns the default configuration
func DefaultErrorHandlerConfig() *ErrorHandlerConfig {
	return &ErrorHandlerConfig{
		Logger:                  zap.NewNop(),
		ExposeHTTPErrorMessages: true,
	}
}

// ErrorHandler returns the echo.HTTPErrorHandler for the process.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	config := DefaultErrorHandlerConfig()
	if logger != nil {
		config.Logger = logger
	}
	return ErrorHandlerWithConfig(config)
}

// ErrorHandlerWithConfig returns an error handler with custom configuration.
//
// An *echo.HTTPError keeps its status and becomes {"error": message}; any
// other error is logged and answered with a generic 500. The handler never
// panics and leaves committed responses alone.
func ErrorHandlerWithConfig(config *ErrorHandlerConfig) echo.HTTPErrorHandler {
	if config == nil {
		config = DefaultErrorHandlerConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(err error, c echo.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Error handler panicked", zap.Any("panic", r), zap.NamedError("cause", err))
			}
		}()

		if err == nil {
			return
		}

		fields := []zap.Field{
			zap.Error(err),
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
		}

		if c.Response().Committed {
			logger.Warn("Error after response was committed", fields...)
			return
		}

		code := http.StatusInternalServerError
		message := response.MessageInternalServerError

		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError:
			code = httpErr.Code
			message = http.StatusText(code)
			if config.ExposeHTTPErrorMessages {
				message = httpErrorMessage(httpErr)
			}
		case errors.As(err, &httpErr):
			code = httpErr.Code
			if text := http.StatusText(code); text != "" {
				message = text
			}
			logger.Error("Internal server error", fields...)
		default:
			logger.Error("Internal server error", fields...)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = response.Error(c, code, message)
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}

func httpErrorMessage(e *echo.HTTPError) string {
	switch m := e.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(e.Code)
	default:
		return fmt.Sprint(m)
	}
}
