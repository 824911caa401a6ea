// Package validation adapts schema libraries to the single capability used by
// route definitions: check a value, return the possibly coerced value or a
// normalized list of field issues.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// Schema validates a value against some schema.
//
// A failed check is reported as *Failure. Any other error means the schema
// itself could not run and is handled as an internal error by the caller.
type Schema interface {
	Validate(value any) (any, error)
}

// Func adapts an ordinary function to Schema.
type Func func(value any) (any, error)

// Validate calls f(value).
func (f Func) Validate(value any) (any, error) {
	return f(value)
}

// FieldIssue is one normalized validation problem.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Failure is returned by a Schema when the value does not satisfy it.
type Failure struct {
	Issues []FieldIssue
}

// NewFailure creates a Failure from the given issues.
func NewFailure(issues ...FieldIssue) *Failure {
	if issues == nil {
		issues = []FieldIssue{}
	}
	return &Failure{Issues: issues}
}

// Error implements the error interface
func (f *Failure) Error() string {
	if len(f.Issues) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(f.Issues))
	for _, issue := range f.Issues {
		if issue.Field == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsFailure reports whether err is, or wraps, a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
