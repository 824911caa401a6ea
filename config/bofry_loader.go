package config

import (
	"fmt"
	"os"
	"strings"

	bofryconfig "github.com/Bofry/config"
)

// BofryLoader is a configuration loader using Bofry/config library.
// Sources are applied in order: defaults, YAML file, .env file, environment.
type BofryLoader struct {
	yamlFile   string
	dotEnvFile string
	envPrefix  string
}

// NewBofryLoader creates a new Bofry configuration loader
func NewBofryLoader() *BofryLoader {
	return &BofryLoader{
		envPrefix: DefaultEnvPrefix,
	}
}

// WithYAMLFile sets the YAML configuration file path
func (l *BofryLoader) WithYAMLFile(path string) *BofryLoader {
	l.yamlFile = path
	return l
}

// WithDotEnvFile sets the .env file path
func (l *BofryLoader) WithDotEnvFile(path string) *BofryLoader {
	l.dotEnvFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix
func (l *BofryLoader) WithEnvPrefix(prefix string) *BofryLoader {
	l.envPrefix = prefix
	return l
}

// Load loads configuration from various sources
func (l *BofryLoader) Load(cfg *Config) error {
	*cfg = *DefaultConfig()

	if err := l.loadBofry(cfg); err != nil {
		return err
	}

	// Bofry/config does not descend into nested sections for env variables,
	// the reflective pass of SimpleLoader covers them.
	compat := &SimpleLoader{envPrefix: l.envPrefix}
	if err := compat.loadFromEnv(cfg); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg.Validate()
}

func (l *BofryLoader) loadBofry(cfg *Config) (loadErr error) {
	// Bofry/config panics on errors
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				loadErr = fmt.Errorf("configuration loading failed: %w", err)
			} else {
				loadErr = fmt.Errorf("configuration loading panic: %v", r)
			}
		}
	}()

	service := bofryconfig.NewConfigurationService(cfg)

	// Missing files are skipped like SimpleLoader does
	for _, source := range []struct {
		path string
		load func(string)
	}{
		{l.yamlFile, func(p string) { service.LoadYamlFile(p) }},
		{l.dotEnvFile, func(p string) { service.LoadDotEnvFile(p) }},
	} {
		if source.path == "" {
			continue
		}
		if _, err := os.Stat(source.path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to check %s: %w", source.path, err)
		}
		source.load(source.path)
	}

	service.LoadEnvironmentVariables(strings.TrimSuffix(l.envPrefix, "_"))
	return nil
}
