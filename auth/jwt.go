// Package auth provides bearer token authentication
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens unless configured otherwise.
const DefaultTokenTTL = time.Hour

const bearerPrefix = "Bearer "

var (
	// ErrMissingCredential means no usable bearer token was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential means the token failed verification, expiry included.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Claims is the decoded claim set of a verified token.
type Claims = jwt.MapClaims

// Authenticator verifies the credential carried by a request.
type Authenticator interface {
	Authenticate(r *http.Request) (Claims, error)
}

// JWTService handles JWT token generation and validation
type JWTService struct {
	secretKey []byte
	tokenTTL  time.Duration
	issuer    string
	now       func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithIssuer sets the iss claim of issued tokens.
func WithIssuer(issuer string) Option {
	return func(s *JWTService) {
		s.issuer = issuer
	}
}

// WithClock replaces time.Now for signing and verification.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

// NewJWTService creates a new JWT service instance. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewJWTService(secretKey string, ttl time.Duration, opts ...Option) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &JWTService{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.tokenTTL
}

// Sign issues an HS256 token carrying payload plus iat and exp claims.
func (s *JWTService) Sign(payload map[string]any) (string, error) {
	now := s.now()
	claims := make(jwt.MapClaims, len(payload)+3)
	for k, v := range payload {
		claims[k] = v
	}
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(s.tokenTTL))
	if _, ok := claims["iss"]; !ok && s.issuer != "" {
		claims["iss"] = s.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Verify validates a token and returns its claims. Every failure wraps
// ErrInvalidCredential.
func (s *JWTService) Verify(tokenString string) (Claims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredential
	}
	return claims, nil
}

// Authenticate extracts the bearer token of r and verifies it.
func (s *JWTService) Authenticate(r *http.Request) (Claims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	return s.Verify(token)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}
