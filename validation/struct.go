package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var (
	defaultValidate *validator.Validate
	defaultOnce     sync.Once
)

// Engine returns the shared go-playground validator with the custom rules
// and json field naming registered.
func Engine() *validator.Validate {
	defaultOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(jsonFieldName)
		RegisterCustomValidators(v)
		defaultValidate = v
	})
	return defaultValidate
}

// StructSchema decodes an input bag into T and validates it with the
// `validate` struct tags of T.
type StructSchema[T any] struct {
	validate *validator.Validate
}

// Struct creates a schema for the struct type T.
func Struct[T any]() *StructSchema[T] {
	return &StructSchema[T]{validate: Engine()}
}

// Validate decodes value into a T and runs the struct validation.
// The returned value is the decoded T.
func (s *StructSchema[T]) Validate(value any) (any, error) {
	var out T
	if err := decode(value, &out); err != nil {
		return nil, NewFailure(FieldIssue{Message: decodeMessage(err)})
	}

	if err := s.validate.Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, newStructFailure(verrs)
		}
		return nil, err
	}
	return out, nil
}

func decode(input, out any) error {
	if input == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// decodeMessage flattens the multi-line mapstructure error into one line.
func decodeMessage(err error) string {
	lines := strings.Split(err.Error(), "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line == "" || strings.HasSuffix(line, "error(s) decoding:") || strings.HasPrefix(line, "decoding failed") {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return "invalid input"
	}
	return strings.Join(parts, "; ")
}

func newStructFailure(verrs validator.ValidationErrors) *Failure {
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{
			Field:   fieldPath(fe.Namespace()),
			Message: getValidationMessage(fe),
		})
	}
	return NewFailure(issues...)
}

// fieldPath drops the root type name from a validator namespace,
// "CreatePlace.address.city" becomes "address.city".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// getValidationMessage returns a custom error message for validation errors
func getValidationMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	case "len":
		return fmt.Sprintf("%s must be exactly %s%s", field, param, unit)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "latitude", "longitude":
		return fmt.Sprintf("%s must be a valid %s", field, fe.Tag())
	case "iso3166_1_alpha2":
		return fmt.Sprintf("%s must be an ISO 3166-1 alpha-2 country code", field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "slug":
		return fmt.Sprintf("%s must be lowercase letters, digits and dashes", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// RegisterCustomValidators registers all custom validation rules
func RegisterCustomValidators(v *validator.Validate) {
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		slug := fl.Field().String()
		if slug == "" {
			return false
		}
		for i, r := range slug {
			if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
				return false
			}
			if r == '-' && (i == 0 || i == len(slug)-1) {
				return false
			}
		}
		return true
	})
}
