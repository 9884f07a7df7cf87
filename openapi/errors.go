package openapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConverter is returned when a path template uses a
	// converter that has no schema mapping.
	ErrUnsupportedConverter = errors.New("unsupported type converter")

	// ErrUnsupportedSchemaInput is returned when a validator-like value
	// cannot be turned into a JSON Schema fragment.
	ErrUnsupportedSchemaInput = errors.New("unsupported schema input")

	// ErrInvalidComponentCategory is returned when a component is registered
	// outside the fixed set of component categories.
	ErrInvalidComponentCategory = errors.New("invalid category for components")

	// ErrValidationFailed is wrapped by every *ValidationError.
	ErrValidationFailed = errors.New("request body failed validation")

	// ErrNoMatchingContentType is returned when no expected body matches the
	// request content type.
	ErrNoMatchingContentType = errors.New("request did not match any expected content type")

	// ErrUnknownValidator is returned when a validator name is not registered.
	ErrUnknownValidator = errors.New("unknown validator")
)

// ConverterError reports an unsupported converter in a path template.
type ConverterError struct {
	Path      string
	Variable  string
	Converter string
}

func (e *ConverterError) Error() string {
	return fmt.Sprintf("path %q: variable %q: %s: %s", e.Path, e.Variable, ErrUnsupportedConverter, e.Converter)
}

func (e *ConverterError) Unwrap() error {
	return ErrUnsupportedConverter
}

// BuildError identifies the resource and path that aborted a document build.
type BuildError struct {
	Resource string
	Path     string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("openapi: build resource %q at %q: %v", e.Resource, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ValidationError describes the first schema violation found in a request
// body. Schema is the sub-schema that rejected Value.
type ValidationError struct {
	Validator string
	Message   string
	Field     string
	Value     any
	Schema    map[string]any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
