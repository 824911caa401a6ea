package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yshengliao/routekit/config"
)

// clearEnv keeps variables of the host environment out of the loaders and
// removes whatever a test or a loaded .env file set.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		config.SecretFallbackEnv,
		"ROUTEKIT_MODE",
		"ROUTEKIT_JWT_SECRET_KEY",
		"ROUTEKIT_LOGGER_LEVEL",
	}
	saved := map[string]string{}
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			saved[key] = v
		}
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range keys {
			os.Unsetenv(key)
			if v, ok := saved[key]; ok {
				os.Setenv(key, v)
			}
		}
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, config.ModeDevelopment, cfg.Mode)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.HandlerTimeout)
	assert.True(t, cfg.Server.Recovery)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Encoding)
	assert.Equal(t, time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "routes", cfg.Routes.Dir)
	assert.Equal(t, "/api/v1", cfg.Routes.Prefix)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Zero(t, cfg.RateLimit.Rate)
}

func TestValidate(t *testing.T) {
	t.Run("DevelopmentFallsBackToDevSecret", func(t *testing.T) {
		cfg := config.DefaultConfig()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, config.DevSecretKey, cfg.JWT.SecretKey)
		assert.True(t, cfg.InsecureSecret())
	})

	t.Run("ProductionRequiresSecret", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Mode = config.ModeProduction
		assert.Error(t, cfg.Validate())

		cfg.JWT.SecretKey = config.DevSecretKey
		assert.Error(t, cfg.Validate())

		cfg.JWT.SecretKey = "a-real-secret"
		require.NoError(t, cfg.Validate())
		assert.False(t, cfg.InsecureSecret())
	})

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"UnknownMode", func(c *config.Config) { c.Mode = "staging" }},
		{"UnknownEncoding", func(c *config.Config) { c.Logger.Encoding = "xml" }},
		{"UnknownDriver", func(c *config.Config) { c.Database.Driver = "postgres" }},
		{"SQLiteWithoutDSN", func(c *config.Config) { c.Database.Driver = "sqlite"; c.Database.DSN = "" }},
		{"NegativeRate", func(c *config.Config) { c.RateLimit.Rate = -1 }},
		{"RateWithoutBurst", func(c *config.Config) { c.RateLimit.Rate = 5; c.RateLimit.Burst = 0 }},
		{"ZeroTTL", func(c *config.Config) { c.JWT.TokenTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSimpleLoader_LoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTEKIT_SERVER_ADDRESS", ":9090")
	t.Setenv("ROUTEKIT_SERVER_CORS", "false")
	t.Setenv("ROUTEKIT_SERVER_SHUTDOWN_TIMEOUT", "20s")
	t.Setenv("ROUTEKIT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ROUTEKIT_LOGGER_LEVEL", "debug")
	t.Setenv("ROUTEKIT_JWT_SECRET_KEY", "test-secret-key")
	t.Setenv("ROUTEKIT_ROUTES_PREFIX", "/api/v2")
	t.Setenv("ROUTEKIT_RATE_LIMIT_RATE", "2.5")
	t.Setenv("ROUTEKIT_RATE_LIMIT_BURST", "5")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().Load(cfg))

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.False(t, cfg.Server.CORS)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "test-secret-key", cfg.JWT.SecretKey)
	assert.Equal(t, "/api/v2", cfg.Routes.Prefix)
	assert.Equal(t, 2.5, cfg.RateLimit.Rate)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestSimpleLoader_SecretFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.SecretFallbackEnv, "from-plain-env")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().Load(cfg))
	assert.Equal(t, "from-plain-env", cfg.JWT.SecretKey)
	assert.False(t, cfg.InsecureSecret())
}

func TestSimpleLoader_WithYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
mode: production
server:
  address: ":7070"
  handler_timeout: 5s
jwt:
  secret_key: "yaml-secret"
  token_ttl: 30m
routes:
  dir: "./api"
database:
  driver: sqlite
  dsn: "file:places.db"
`)
	t.Setenv("ROUTEKIT_SERVER_ADDRESS", ":7171")

	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithYAMLFile(path).Load(cfg))

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":7171", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.HandlerTimeout)
	assert.Equal(t, "yaml-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.JWT.TokenTTL)
	assert.Equal(t, "./api", cfg.Routes.Dir)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:places.db", cfg.Database.DSN)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestSimpleLoader_MissingYAMLIsSkipped(t *testing.T) {
	clearEnv(t)
	cfg := &config.Config{}
	require.NoError(t, config.NewSimpleLoader().WithYAMLFile(filepath.Join(t.TempDir(), "absent.yaml")).Load(cfg))
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestSimpleLoader_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTEKIT_SERVER_READ_TIMEOUT", "soon")

	err := config.NewSimpleLoader().Load(&config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROUTEKIT_SERVER_READ_TIMEOUT")
}

func TestBofryLoader_LoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUTEKIT_JWT_SECRET_KEY", "test-secret")

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().Load(cfg))

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.Recovery)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "test-secret", cfg.JWT.SecretKey)
}

func TestBofryLoader_LoadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  address: ":8888"
  read_timeout: 45s
logger:
  level: "warn"
  encoding: "console"
jwt:
  secret_key: "yaml-secret-key"
  issuer: "yaml-issuer"
  token_ttl: 2h
routes:
  prefix: "/v3"
`)

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":8888", cfg.Server.Address)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Encoding)
	assert.Equal(t, "yaml-secret-key", cfg.JWT.SecretKey)
	assert.Equal(t, "yaml-issuer", cfg.JWT.Issuer)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "/v3", cfg.Routes.Prefix)
}

func TestBofryLoader_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  address: ":7777"
jwt:
  secret_key: "yaml-key"
`)
	t.Setenv("ROUTEKIT_SERVER_ADDRESS", ":9999")
	t.Setenv("ROUTEKIT_JWT_SECRET_KEY", "env-override-key")

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "env-override-key", cfg.JWT.SecretKey)
}

func TestBofryLoader_DotEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "ROUTEKIT_JWT_SECRET_KEY=dotenv-secret\nROUTEKIT_LOGGER_LEVEL=debug\n")

	cfg := &config.Config{}
	require.NoError(t, config.NewBofryLoader().WithDotEnvFile(path).Load(cfg))

	assert.Equal(t, "dotenv-secret", cfg.JWT.SecretKey)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestBofryLoader_ProductionWithoutSecret(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "mode: production\n")

	err := config.NewBofryLoader().WithYAMLFile(path).Load(&config.Config{})
	assert.Error(t, err)
}
