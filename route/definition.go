// Package route describes endpoints as data and discovers them from route
// files.
package route

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/validation"
)

// Method is an HTTP method a route can be declared with.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPatch  Method = http.MethodPatch
)

// Methods lists the supported methods.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// ParseMethod parses a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unsupported method %q", s)
	}
	return m, nil
}

// Valid reports whether m is one of Methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// Validate holds the optional schemas of a route. They run in the order
// Params, Query, Body.
type Validate struct {
	Params validation.Schema
	Query  validation.Schema
	Body   validation.Schema
}

// Definition describes one endpoint.
type Definition struct {
	Method   Method
	Path     string
	Auth     bool
	Validate Validate
	Handler  echo.HandlerFunc

	// Name identifies the handler in logs, the catalog name for file routes.
	Name string
	// Source is the route file that declared the definition, empty for
	// definitions built in code.
	Source string
}

// Option customizes a Definition built by Define.
type Option func(*Definition)

// WithAuth requires a valid credential.
func WithAuth() Option {
	return func(d *Definition) { d.Auth = true }
}

// WithParams validates the path parameters.
func WithParams(s validation.Schema) Option {
	return func(d *Definition) { d.Validate.Params = s }
}

// WithQuery validates the query string.
func WithQuery(s validation.Schema) Option {
	return func(d *Definition) { d.Validate.Query = s }
}

// WithBody validates the request body.
func WithBody(s validation.Schema) Option {
	return func(d *Definition) { d.Validate.Body = s }
}

// Named sets the name used for the handler in logs.
func Named(name string) Option {
	return func(d *Definition) { d.Name = name }
}

// Define builds a Definition in code.
func Define(method Method, path string, handler echo.HandlerFunc, opts ...Option) Definition {
	d := Definition{
		Method:  method,
		Path:    path,
		Handler: handler,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Check reports the first structural problem of d.
func (d Definition) Check() error {
	if d.Method == "" {
		return fmt.Errorf("method is required")
	}
	if !d.Method.Valid() {
		return fmt.Errorf("unsupported method %q", d.Method)
	}
	if d.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("path %q must start with /", d.Path)
	}
	if d.Handler == nil {
		return fmt.Errorf("handler is required for %s %s", d.Method, d.Path)
	}
	return nil
}
