package route

import (
	"errors"
	"strings"
)

// ConfigurationError is a fatal startup problem with the route setup, such as
// a missing routes directory or a route file naming an unknown handler.
type ConfigurationError struct {
	Dir    string
	File   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("route configuration")
	switch {
	case e.File != "":
		b.WriteString(" ")
		b.WriteString(e.File)
	case e.Dir != "":
		b.WriteString(" ")
		b.WriteString(e.Dir)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
