package errors

import (
	"errors"
	"fmt"
	"time"
)

// DomainError is the base interface for all structured errors in the application
type DomainError interface {
	error

	// Domain returns the pipeline stage the error belongs to (e.g. "keys", "registration")
	Domain() string

	// Code returns a stable error code
	Code() string

	// Retryable indicates if the operation can be retried
	Retryable() bool

	// Metadata returns additional error context
	Metadata() map[string]any

	// Timestamp returns when the error occurred
	Timestamp() time.Time
}

// BaseError is the foundational implementation of DomainError
type BaseError struct {
	domain    string
	code      string
	message   string
	cause     error
	retryable bool
	metadata  map[string]any
	timestamp time.Time
}

func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.domain, e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.domain, e.code, e.message)
}

func (e *BaseError) Unwrap() error            { return e.cause }
func (e *BaseError) Domain() string           { return e.domain }
func (e *BaseError) Code() string             { return e.code }
func (e *BaseError) Retryable() bool          { return e.retryable }
func (e *BaseError) Metadata() map[string]any { return e.metadata }
func (e *BaseError) Timestamp() time.Time     { return e.timestamp }

// NewBaseError creates a new BaseError with the specified parameters
func NewBaseError(domain, code, message string, retryable bool, cause error, metadata map[string]any) *BaseError {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &BaseError{
		domain:    domain,
		code:      code,
		message:   message,
		cause:     cause,
		retryable: retryable,
		metadata:  metadata,
		timestamp: time.Now(),
	}
}

// Standardized Error Codes
const (
	ErrCodeDependencyMissing       = "dependency_missing"
	ErrCodeKeyGeneration           = "key_generation_failed"
	ErrCodeRegistration            = "registration_failed"
	ErrCodeMissingField            = "missing_field"
	ErrCodePresentationUnavailable = "presentation_unavailable"
	ErrCodePreflight               = "preflight_failed"
	ErrCodeConfiguration           = "config_error"
	ErrCodeOutput                  = "output_failed"
)

// Domain Constants
const (
	DomainPreflight    = "preflight"
	DomainKeys         = "keys"
	DomainRegistration = "registration"
	DomainResponse     = "response"
	DomainPresentation = "presentation"
	DomainSystem       = "system"
)

// NewKeyGenerationError creates a key pair generation error
func NewKeyGenerationError(message string, cause error) DomainError {
	return NewBaseError(DomainKeys, ErrCodeKeyGeneration, message, false, cause, nil)
}

// NewSystemError creates a standardized system error
func NewSystemError(code, message string, retryable bool, cause error) DomainError {
	return NewBaseError(DomainSystem, code, message, retryable, cause, nil)
}

// Helper functions for error checking

// AsDomainError finds the first DomainError in err's chain.
func AsDomainError(err error) (DomainError, bool) {
	var domainErr DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// GetErrorCode returns the error code if it's a DomainError, otherwise returns "unknown"
func GetErrorCode(err error) string {
	if domainErr, ok := AsDomainError(err); ok {
		return domainErr.Code()
	}
	return "unknown"
}

// GetErrorDomain returns the error domain if it's a DomainError, otherwise returns "unknown"
func GetErrorDomain(err error) string {
	if domainErr, ok := AsDomainError(err); ok {
		return domainErr.Domain()
	}
	return "unknown"
}
