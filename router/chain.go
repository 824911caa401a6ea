// Package router composes route definitions into middleware chains and mounts
// them on an echo server.
package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/response"
	"github.com/yshengliao/routekit/route"
	"github.com/yshengliao/routekit/validation"
)

// Step is one named middleware of a chain.
type Step struct {
	Name       string
	Middleware echo.MiddlewareFunc
}

// Chain is the ordered pipeline of one route. Steps run first to last, then
// the handler.
type Chain struct {
	Steps   []Step
	Handler echo.HandlerFunc
}

// Names lists the step names followed by "handler".
func (ch Chain) Names() []string {
	names := make([]string, 0, len(ch.Steps)+1)
	for _, s := range ch.Steps {
		names = append(names, s.Name)
	}
	return append(names, "handler")
}

// Middleware returns the step middleware in run order, the form echo's Add
// expects.
func (ch Chain) Middleware() []echo.MiddlewareFunc {
	mw := make([]echo.MiddlewareFunc, 0, len(ch.Steps))
	for _, s := range ch.Steps {
		mw = append(mw, s.Middleware)
	}
	return mw
}

// HandlerFunc folds the chain into a single handler.
func (ch Chain) HandlerFunc() echo.HandlerFunc {
	h := ch.Handler
	for i := len(ch.Steps) - 1; i >= 0; i-- {
		h = ch.Steps[i].Middleware(h)
	}
	return h
}

// Composer turns route definitions into chains.
type Composer struct {
	global []echo.MiddlewareFunc
	auth   echo.MiddlewareFunc
}

// NewComposer creates a composer. global runs first on every route, auth
// guards the routes declaring Auth.
func NewComposer(global []echo.MiddlewareFunc, auth echo.MiddlewareFunc) *Composer {
	return &Composer{global: global, auth: auth}
}

// Compose builds the chain of def:
// global middleware, params, query and body validation, auth, handler.
func (c *Composer) Compose(def route.Definition) (Chain, error) {
	if err := def.Check(); err != nil {
		return Chain{}, &route.ConfigurationError{File: def.Source, Reason: "invalid route", Err: err}
	}

	var steps []Step
	for i, mw := range c.global {
		if mw == nil {
			continue
		}
		steps = append(steps, Step{Name: fmt.Sprintf("global[%d]", i), Middleware: mw})
	}

	slots := []struct {
		target validation.Target
		schema validation.Schema
	}{
		{validation.Params, def.Validate.Params},
		{validation.Query, def.Validate.Query},
		{validation.Body, def.Validate.Body},
	}
	for _, slot := range slots {
		if slot.schema == nil {
			continue
		}
		steps = append(steps, Step{
			Name:       "validate:" + string(slot.target),
			Middleware: ValidateStep(slot.target, slot.schema),
		})
	}

	if def.Auth {
		if c.auth == nil {
			return Chain{}, &route.ConfigurationError{
				File:   def.Source,
				Reason: fmt.Sprintf("%s %s requires auth but no auth middleware is configured", def.Method, def.Path),
			}
		}
		steps = append(steps, Step{Name: "auth", Middleware: c.auth})
	}

	return Chain{Steps: steps, Handler: def.Handler}, nil
}

// ValidateStep checks the target input of each request against schema.
//
// A *validation.Failure ends the request with the 400 validation response.
// Any other error is returned unchanged for the error handler. On success the
// coerced value is stored for validation.ValueOf.
func ValidateStep(target validation.Target, schema validation.Schema) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, err := validation.Apply(c, target, schema)
			if err == nil {
				return next(c)
			}

			if failure, ok := validation.AsFailure(err); ok {
				return response.ValidationFailed(c, failure.Issues)
			}
			return err
		}
	}
}
