package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix prefixes every environment variable read by the loaders.
const DefaultEnvPrefix = "ROUTEKIT_"

// SecretFallbackEnv is read when no prefixed JWT secret is configured.
const SecretFallbackEnv = "JWT_SECRET"

// SimpleLoader reads an optional YAML file, then the prefixed environment
// variables named by the env tags of Config. It reads no .env file.
type SimpleLoader struct {
	yamlFile  string
	envPrefix string
}

// NewSimpleLoader returns a loader using DefaultEnvPrefix.
func NewSimpleLoader() *SimpleLoader {
	return &SimpleLoader{
		envPrefix: DefaultEnvPrefix,
	}
}

// WithYAMLFile sets the YAML file. A missing file is skipped.
func (l *SimpleLoader) WithYAMLFile(path string) *SimpleLoader {
	l.yamlFile = path
	return l
}

func (l *SimpleLoader) WithEnvPrefix(prefix string) *SimpleLoader {
	l.envPrefix = prefix
	return l
}

// Load resets cfg to the defaults, applies the YAML file and the environment
// and validates the result.
func (l *SimpleLoader) Load(cfg *Config) error {
	*cfg = *DefaultConfig()

	if l.yamlFile != "" {
		if err := l.loadFromYAML(cfg); err != nil {
			return fmt.Errorf("failed to load YAML config: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}

	return cfg.Validate()
}

func (l *SimpleLoader) loadFromYAML(cfg *Config) error {
	data, err := os.ReadFile(l.yamlFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (l *SimpleLoader) loadFromEnv(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	if err := l.loadStructFromEnv(v, l.envPrefix); err != nil {
		return err
	}

	if cfg.JWT.SecretKey == "" {
		cfg.JWT.SecretKey = os.Getenv(SecretFallbackEnv)
	}
	return nil
}

// loadStructFromEnv sets the fields of v from prefix+env tag, descending into
// nested sections with the tag and an underscore appended to prefix.
func (l *SimpleLoader) loadStructFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		fullEnvName := prefix + strings.Split(envTag, ",")[0]

		if field.Kind() == reflect.Struct && fieldType.Type != reflect.TypeOf(time.Time{}) {
			if err := l.loadStructFromEnv(field, fullEnvName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(fullEnvName)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, fullEnvName, err)
		}
	}

	return nil
}

// setFieldValue parses value into field. Durations use time.ParseDuration,
// string slices are comma separated.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
