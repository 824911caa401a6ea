package auth

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
)

const (
	// ClaimsContextKey is the key used to store claims in context
	ClaimsContextKey = "jwt-claims"

	MessageMissingToken = "Unauthorized: Missing token"
	MessageInvalidToken = "Unauthorized: Invalid token"
)

type claimsKey struct{}

// Middleware rejects requests whose credential a does not accept with a 401
// response and otherwise attaches the claims to the echo context and to the
// request context.
func Middleware(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := a.Authenticate(c.Request())
			if err != nil {
				if errors.Is(err, ErrMissingCredential) {
					return response.Unauthorized(c, MessageMissingToken)
				}
				return response.Unauthorized(c, MessageInvalidToken)
			}

			c.Set(ClaimsContextKey, claims)
			req := c.Request()
			c.SetRequest(req.WithContext(WithClaims(req.Context(), claims)))

			return next(c)
		}
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Middleware, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

// GetClaims retrieves JWT claims from context
func GetClaims(c echo.Context) Claims {
	if claims, ok := c.Get(ClaimsContextKey).(Claims); ok {
		return claims
	}
	return nil
}

// GetSubject retrieves the sub claim, empty when absent
func GetSubject(c echo.Context) string {
	claims := GetClaims(c)
	if claims == nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
