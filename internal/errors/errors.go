package errors

import (
	"fmt"
)

// ErrorType represents different types of errors
type ErrorType string

const (
	// ErrorTypeNotFound indicates no pipeline/workflow/job matched a reference.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeAuth indicates a bad or missing API token. Never retried.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeProvider indicates CircleCI was rate limiting or erroring
	// after retries were exhausted.
	ErrorTypeProvider ErrorType = "provider"
	// ErrorTypeAmbiguous indicates a reference could not be classified.
	ErrorTypeAmbiguous ErrorType = "ambiguous"
	// ErrorTypeCache indicates a local cache failure. Recovered internally,
	// callers treat it as a miss.
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeConfig indicates invalid or missing configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation indicates invalid user input.
	ErrorTypeValidation ErrorType = "validation"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, message, cause)
}

// NewAuthError creates a new authentication error
func NewAuthError(message string, cause error) *AppError {
	return newError(ErrorTypeAuth, message, cause)
}

// NewProviderError creates a new provider-unavailable error
func NewProviderError(message string, cause error) *AppError {
	return newError(ErrorTypeProvider, message, cause)
}

// NewAmbiguousError creates a new ambiguous-reference error
func NewAmbiguousError(message string, cause error) *AppError {
	return newError(ErrorTypeAmbiguous, message, cause)
}

// NewCacheError creates a new cache-related error
func NewCacheError(message string, cause error) *AppError {
	return newError(ErrorTypeCache, message, cause)
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, cause error) *AppError {
	return newError(ErrorTypeConfig, message, cause)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}
