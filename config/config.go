// Package config provides configuration loading for routekit servers
package config

import (
	"fmt"
	"time"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// DevSecretKey signs tokens in development mode when no secret is configured.
// It is rejected in production mode.
const DevSecretKey = "routekit-insecure-development-secret"

// Config represents the application configuration structure
type Config struct {
	Mode      string          `yaml:"mode" env:"MODE" default:"development"`
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Logger    LoggerConfig    `yaml:"logger" env:"LOGGER"`
	JWT       JWTConfig       `yaml:"jwt" env:"JWT"`
	Routes    RoutesConfig    `yaml:"routes" env:"ROUTES"`
	Database  DatabaseConfig  `yaml:"database" env:"DATABASE"`
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address         string        `yaml:"address" env:"ADDRESS" default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" default:"10s"`
	// HandlerTimeout bounds the request context of every request, 0 disables it.
	HandlerTimeout time.Duration `yaml:"handler_timeout" env:"HANDLER_TIMEOUT" default:"30s"`
	BodyLimit      string        `yaml:"body_limit" env:"BODY_LIMIT" default:"2M"`
	CORS           bool          `yaml:"cors" env:"CORS" default:"true"`
	CORSOrigins    []string      `yaml:"cors_origins" env:"CORS_ORIGINS" default:"*"`
	Recovery       bool          `yaml:"recovery" env:"RECOVERY" default:"true"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level            string   `yaml:"level" env:"LEVEL" default:"info"`
	Encoding         string   `yaml:"encoding" env:"ENCODING" default:"json"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS" default:"stdout"`
	ErrorOutputPaths []string `yaml:"error_output_paths" env:"ERROR_OUTPUT_PATHS" default:"stderr"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	SecretKey string        `yaml:"secret_key" env:"SECRET_KEY"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" default:"1h"`
	Issuer    string        `yaml:"issuer" env:"ISSUER" default:"routekit"`
}

// RoutesConfig locates the route and schema files
type RoutesConfig struct {
	Dir        string `yaml:"dir" env:"DIR" default:"routes"`
	Prefix     string `yaml:"prefix" env:"PREFIX" default:"/api/v1"`
	SchemasDir string `yaml:"schemas_dir" env:"SCHEMAS_DIR" default:"schemas"`
}

// DatabaseConfig selects the places store
type DatabaseConfig struct {
	// Driver is "memory" or "sqlite"
	Driver string `yaml:"driver" env:"DRIVER" default:"memory"`
	DSN    string `yaml:"dsn" env:"DSN" default:"routekit.db"`
}

// RateLimitConfig holds per client rate limiting, a zero rate disables it
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate" env:"RATE" default:"0"`
	Burst int     `yaml:"burst" env:"BURST" default:"20"`
}

// Loader interface for configuration loading
type Loader interface {
	Load(cfg *Config) error
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeDevelopment,
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			HandlerTimeout:  30 * time.Second,
			BodyLimit:       "2M",
			CORS:            true,
			CORSOrigins:     []string{"*"},
			Recovery:        true,
		},
		Logger: LoggerConfig{
			Level:            "info",
			Encoding:         "json",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		JWT: JWTConfig{
			TokenTTL: time.Hour,
			Issuer:   "routekit",
		},
		Routes: RoutesConfig{
			Dir:        "routes",
			Prefix:     "/api/v1",
			SchemasDir: "schemas",
		},
		Database: DatabaseConfig{
			Driver: "memory",
			DSN:    "routekit.db",
		},
		RateLimit: RateLimitConfig{
			Burst: 20,
		},
	}
}

// IsProduction reports whether the configuration runs in production mode
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

// InsecureSecret reports whether tokens are signed with DevSecretKey
func (c *Config) InsecureSecret() bool {
	return c.JWT.SecretKey == DevSecretKey
}

// Validate validates the configuration. In development mode a missing JWT
// secret is replaced by DevSecretKey.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	case "":
		c.Mode = ModeDevelopment
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	switch {
	case c.JWT.SecretKey == "" && c.IsProduction():
		return fmt.Errorf("JWT secret key is required in production mode")
	case c.JWT.SecretKey == DevSecretKey && c.IsProduction():
		return fmt.Errorf("the development JWT secret key cannot be used in production mode")
	case c.JWT.SecretKey == "":
		c.JWT.SecretKey = DevSecretKey
	}
	if c.JWT.TokenTTL <= 0 {
		return fmt.Errorf("JWT token TTL must be positive")
	}

	switch c.Logger.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logger encoding %q", c.Logger.Encoding)
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.RateLimit.Rate < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}
	return nil
}
