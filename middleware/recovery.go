package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RecoveryConfig contains configuration for the recovery middleware
type RecoveryConfig struct {
	// Logger is used to log panics
	Logger *zap.Logger
	// StackSize is the maximum size of the stack trace
	StackSize int
	// DisableStackAll disables the stack trace for all goroutines
	DisableStackAll bool
}

// DefaultRecoveryConfig returns the default configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		StackSize: 4 << 10, // 4 KB
	}
}

// Recovery returns a middleware that turns panics into errors
func Recovery(logger *zap.Logger) echo.MiddlewareFunc {
	config := DefaultRecoveryConfig()
	config.Logger = logger
	return RecoveryWithConfig(config)
}

// RecoveryWithConfig returns a middleware with custom configuration.
// The recovered panic is returned as an error so the error handler renders it.
func RecoveryWithConfig(config *RecoveryConfig) echo.MiddlewareFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}
	if config.StackSize == 0 {
		config.StackSize = 4 << 10
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				panicErr, ok := r.(error)
				if !ok {
					panicErr = fmt.Errorf("%v", r)
				}

				stack := make([]byte, config.StackSize)
				stack = stack[:runtime.Stack(stack, !config.DisableStackAll)]

				logger.Error("Panic recovered",
					zap.Error(panicErr),
					zap.Strings("stack", formatStack(stack)),
					zap.String("request_id", GetRequestID(c)),
					zap.String("path", c.Request().URL.Path))

				err = fmt.Errorf("panic recovered: %w", panicErr)
			}()

			return next(c)
		}
	}
}

// formatStack formats the stack trace for better readability
func formatStack(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	formatted := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Skip runtime internals
		if strings.Contains(line, "runtime/") ||
			strings.Contains(line, "net/http/") ||
			strings.Contains(line, "github.com/labstack/echo") {
			continue
		}
		formatted = append(formatted, line)
	}

	return formatted
}
