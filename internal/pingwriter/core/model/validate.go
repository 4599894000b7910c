package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks pings with go-playground/validator rules.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the unix_seconds rule registered.
func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("unix_seconds", isUnixSeconds); err != nil {
		return nil, fmt.Errorf("failed to register 'unix_seconds': %w", err)
	}

	return &Validator{v: v}, nil
}

// isUnixSeconds accepts positive integers up to MaxUnixSeconds.
func isUnixSeconds(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return f > 0 && f == math.Trunc(f) && f <= MaxUnixSeconds
}

// Validate returns nil for an acceptable ping.
func (v *Validator) Validate(p *Ping) []FieldError {
	if p == nil {
		return []FieldError{{Code: CodeInvalidType, Message: "Expected object, received null"}}
	}

	err := v.v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Code: CodeCustom, Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, toFieldError(fe))
	}
	return out
}

func toFieldError(fe validator.FieldError) FieldError {
	path := []string{fe.Field()}

	switch fe.Tag() {
	case "required":
		return FieldError{Code: CodeInvalidType, Path: path, Message: "Required"}
	case "gte":
		return FieldError{Code: CodeTooSmall, Path: path, Message: "Number must be greater than or equal to " + fe.Param()}
	case "lte":
		return FieldError{Code: CodeTooBig, Path: path, Message: "Number must be less than or equal to " + fe.Param()}
	case "unix_seconds":
		return FieldError{Code: CodeInvalidType, Path: path, Message: "Expected a positive integer of Unix seconds"}
	default:
		return FieldError{Code: CodeCustom, Path: path, Message: fmt.Sprintf("failed on the %q rule", fe.Tag())}
	}
}

// DecodePing unmarshals a JSON ping. Syntax and type problems come back as
// field errors so that callers can answer them like validation failures.
func DecodePing(data []byte) (*Ping, []FieldError) {
	var p Ping
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, []FieldError{decodeFieldError(err)}
	}
	return &p, nil
}

func decodeFieldError(err error) FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		var path []string
		if typeErr.Field != "" {
			path = strings.Split(typeErr.Field, ".")
		}
		return FieldError{
			Code:    CodeInvalidType,
			Path:    path,
			Message: fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value),
		}
	}
	return FieldError{Code: CodeInvalidJSON, Message: err.Error()}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return t.Kind().String()
	}
}
