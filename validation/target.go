package validation

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// Target names the part of a request a schema applies to.
type Target string

const (
	Params Target = "params"
	Query  Target = "query"
	Body   Target = "body"
)

// Extract returns the input bag of the target for the current request.
//
// Params and query become map[string]any. A query key with a single value maps
// to a string, repeated keys map to []any. The body is decoded from JSON (or
// from a urlencoded form) and the raw bytes are put back on the request so the
// handler can bind them again.
func (t Target) Extract(c echo.Context) (any, error) {
	switch t {
	case Params:
		names, values := c.ParamNames(), c.ParamValues()
		bag := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(values) {
				bag[name] = values[i]
			}
		}
		return bag, nil
	case Query:
		return valuesBag(c.QueryParams()), nil
	case Body:
		return extractBody(c.Request())
	}
	return nil, nil
}

func extractBody(req *http.Request) (any, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, NewFailure(FieldIssue{Message: "malformed form body"})
		}
		return valuesBag(values), nil
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, NewFailure(FieldIssue{Message: "malformed JSON body"})
	}
	return body, nil
}

func valuesBag(values url.Values) map[string]any {
	bag := make(map[string]any, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			bag[key] = vals[0]
		default:
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			bag[key] = list
		}
	}
	return bag
}

func contextKey(t Target) string {
	return "validated_" + string(t)
}

// Store keeps the validated value of a target on the echo context.
func Store(c echo.Context, t Target, value any) {
	c.Set(contextKey(t), value)
}

// ValueOf returns the validated value stored for a target, typed as T.
func ValueOf[T any](c echo.Context, t Target) (T, bool) {
	v, ok := c.Get(contextKey(t)).(T)
	return v, ok
}

// Apply extracts the input of t, validates it with schema and stores the
// coerced value on c.
func Apply(c echo.Context, t Target, schema Schema) (any, error) {
	input, err := t.Extract(c)
	if err != nil {
		return nil, err
	}
	out, err := schema.Validate(input)
	if err != nil {
		return nil, err
	}
	Store(c, t, out)
	return out, nil
}
