package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
	"github.com/yshengliao/routekit/validation"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Subject string `json:"sub" validate:"required,notblank"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty" validate:"omitempty,oneof=admin editor viewer"`
}

// TokenResponse carries an issued token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// IssueHandler signs a token for the validated TokenRequest of the route.
// Without a body schema on the route it binds the body itself.
func IssueHandler(s *JWTService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, ok := validation.ValueOf[TokenRequest](c, validation.Body)
		if !ok {
			if err := c.Bind(&req); err != nil {
				return err
			}
			if req.Subject == "" {
				return response.ValidationFailed(c, []validation.FieldIssue{
					{Field: "sub", Message: "sub is required"},
				})
			}
		}

		payload := map[string]any{"sub": req.Subject}
		if req.Name != "" {
			payload["name"] = req.Name
		}
		if req.Role != "" {
			payload["role"] = req.Role
		}

		token, err := s.Sign(payload)
		if err != nil {
			return err
		}
		return response.Created(c, TokenResponse{
			Token:     token,
			ExpiresIn: int64(s.TTL().Seconds()),
		})
	}
}
