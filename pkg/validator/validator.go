// Package validator accumulates field-level errors for catalog input and
// converts gin binding failures into the same field map.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
)

// Validator holds field name -> message. An empty map means valid.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a field.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// Err returns nil when valid, otherwise a *ValidationError.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return &ValidationError{Fields: v.Errors}
}

// ValidationError is returned for malformed or missing input. Callers
// re-present it alongside the submitted values.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func Field(key, message string) error {
	return &ValidationError{Fields: map[string]string{key: message}}
}

// FromBinding translates an error produced by gin's ShouldBind* into a
// *ValidationError keyed by the request field names.
func FromBinding(err error) error {
	if err == nil {
		return nil
	}
	v := New()

	var fieldErrs playground.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var timeErr *time.ParseError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			v.AddError(fe.Field(), message(fe))
		}
	case errors.As(err, &typeErr):
		v.AddError(typeErr.Field, fmt.Sprintf("must be a %s", typeErr.Type.String()))
	case errors.As(err, &timeErr):
		v.AddError("date", "must be a date in YYYY-MM-DD format")
	default:
		v.AddError("body", err.Error())
	}
	return v.Err()
}

func message(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datestr":
		return "must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// RegisterTagNames makes field errors report the json (or form) name of a
// field instead of the Go name, and registers the datestr rule.
func RegisterTagNames(v *playground.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v.RegisterValidation("datestr", func(fl playground.FieldLevel) bool {
		raw := fl.Field().String()
		if raw == "" {
			return true
		}
		_, err := time.Parse("2006-01-02", raw)
		return err == nil
	})
}
