// Package testutil holds HTTP assertions shared by the package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request builds a request with an optional JSON body and bearer token.
func Request(method, target, body, token string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// Serve runs req through h and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON asserts a JSON response with status and decodes its body.
func DecodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()

	var out T
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"),
		"expected JSON content type, got %q", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ErrorBody asserts the {"error": message} body with status.
func ErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	assert.Equal(t, status, rec.Code)
	assert.JSONEq(t, `{"error":`+quote(message)+`}`, rec.Body.String())
}

// ValidationFields asserts a 400 validation response and returns the
// fields of its issues in order.
func ValidationFields(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()

	body := DecodeJSON[struct {
		Message string `json:"message"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}](t, rec, http.StatusBadRequest)
	assert.Equal(t, "Validation failed", body.Message)

	fields := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
