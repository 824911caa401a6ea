// Package response provides the JSON bodies of the HTTP contract
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yshengliao/routekit/validation"
)

const (
	// MessageValidationFailed is the message of every 400 validation response.
	MessageValidationFailed = "Validation failed"
	// MessageInternalServerError is the only detail a 500 response carries.
	MessageInternalServerError = "Internal Server Error"
)

// ErrorBody is the body of every non-validation error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ValidationBody is the body of a 400 validation response.
type ValidationBody struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldIssue `json:"errors"`
}

// Error sends an error response
func Error(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, ErrorBody{Error: message})
}

// ValidationFailed sends a 400 response listing the field issues.
func ValidationFailed(c echo.Context, issues []validation.FieldIssue) error {
	if issues == nil {
		issues = []validation.FieldIssue{}
	}
	return c.JSON(http.StatusBadRequest, ValidationBody{
		Message: MessageValidationFailed,
		Errors:  issues,
	})
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message)
}

// NotFound sends a 404 response of the form {"error": "<entity> not found"}.
func NotFound(c echo.Context, entity string) error {
	return Error(c, http.StatusNotFound, entity+" not found")
}

// InternalServerError sends the generic 500 response.
func InternalServerError(c echo.Context) error {
	return Error(c, http.StatusInternalServerError, MessageInternalServerError)
}

// OK sends a 200 response with data as the body.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// Created sends a 201 response with the created representation.
func Created(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response with an empty body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
