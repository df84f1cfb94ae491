package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DependencyError reports a required external capability that is not available.
type DependencyError struct {
	*BaseError
	Dependency string
}

// NewDependencyError creates a dependency_missing error for the named capability
func NewDependencyError(dependency, message string, cause error) *DependencyError {
	return &DependencyError{
		BaseError: NewBaseError(DomainPreflight, ErrCodeDependencyMissing,
			fmt.Sprintf("%s: %s", dependency, message), false, cause,
			map[string]any{"dependency": dependency}),
		Dependency: dependency,
	}
}

// PresentationError reports an optional output feature whose capability is unavailable.
type PresentationError struct {
	*BaseError
	Capability string
}

// NewPresentationError creates a presentation_unavailable error
func NewPresentationError(capability, message string, cause error) *PresentationError {
	return &PresentationError{
		BaseError: NewBaseError(DomainPresentation, ErrCodePresentationUnavailable,
			fmt.Sprintf("%s: %s", capability, message), false, cause,
			map[string]any{"capability": capability}),
		Capability: capability,
	}
}

// RegistrationError represents a failed registration round-trip. Body holds
// whatever the endpoint returned, if anything.
type RegistrationError struct {
	*BaseError
	StatusCode int
	Body       []byte
}

// NewRegistrationError creates a registration_failed error
func NewRegistrationError(statusCode int, body []byte, message string, cause error) *RegistrationError {
	meta := map[string]any{}
	if statusCode != 0 {
		meta["http_status"] = statusCode
	}
	if len(body) > 0 {
		meta["body"] = string(body)
	}

	return &RegistrationError{
		BaseError:  NewBaseError(DomainRegistration, ErrCodeRegistration, message, false, cause, meta),
		StatusCode: statusCode,
		Body:       body,
	}
}

// MissingFieldError reports a required registration response field that was
// absent, null or empty. Field is the dotted JSON path.
type MissingFieldError struct {
	*BaseError
	Field string
}

// NewMissingFieldError creates a missing_field error for the given JSON path
func NewMissingFieldError(field string) *MissingFieldError {
	return &MissingFieldError{
		BaseError: NewBaseError(DomainResponse, ErrCodeMissingField,
			fmt.Sprintf("required field %s is missing", field), false, nil,
			map[string]any{"field": field}),
		Field: field,
	}
}

// PreflightError aggregates every failed environment requirement of a run.
type PreflightError struct {
	*BaseError
	Failures []error
}

// NewPreflightError wraps failures into a single error.
func NewPreflightError(failures []error) *PreflightError {
	return &PreflightError{
		BaseError: NewBaseError(DomainPreflight, ErrCodePreflight, "environment validation failed", false, nil,
			map[string]any{"failures": len(failures)}),
		Failures: failures,
	}
}

func (e *PreflightError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("environment validation failed (%d): %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PreflightError) Unwrap() []error { return e.Failures }

// MissingFields returns the names of all missing fields found in err's tree.
func MissingFields(err error) []string {
	var fields []string
	walk(err, func(e error) {
		if mf, ok := e.(*MissingFieldError); ok {
			fields = append(fields, mf.Field)
		}
	})
	return fields
}

func walk(err error, fn func(error)) {
	if err == nil {
		return
	}
	fn(err)
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			walk(e, fn)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), fn)
	}
}
