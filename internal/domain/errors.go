// Package domain provides the canonical request, result, and error types for
// the hook generation service.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates malformed or missing input.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeUnauthorized indicates a missing user identity or service key.
	ErrorTypeUnauthorized ErrorType = "unauthorized"

	// ErrorTypeQuotaExceeded indicates the user's token balance is exhausted.
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"

	// ErrorTypeNotFound indicates no balance record exists for the user.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeMethodNotAllowed indicates the wrong HTTP verb was used.
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"

	// ErrorTypeProvider indicates the generation provider failed, returned a
	// non-success status, or produced unusable content.
	ErrorTypeProvider ErrorType = "provider_error"

	// ErrorTypeInternal indicates anything unanticipated.
	ErrorTypeInternal ErrorType = "internal_error"
)

// APIError is the error shape returned to clients. The wrapped cause is kept
// for server-side logging and is never serialized.
type APIError struct {
	// Type is the machine-readable category
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the request field that caused the error (if applicable)
	Param string `json:"param,omitempty"`

	// StatusCode overrides the default status for Type when non-zero
	StatusCode int `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeQuotaExceeded:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithParam adds a parameter name to the error.
func (e *APIError) WithParam(param string) *APIError {
	e.Param = param
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithCause attaches the underlying error for logging.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// Convenience constructors for common errors

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrUnauthorized creates an unauthorized error.
func ErrUnauthorized(message string) *APIError {
	return NewAPIError(ErrorTypeUnauthorized, message)
}

// ErrQuotaExceeded creates a quota exceeded error.
func ErrQuotaExceeded(message string) *APIError {
	return NewAPIError(ErrorTypeQuotaExceeded, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrMethodNotAllowed creates a method not allowed error.
func ErrMethodNotAllowed(message string) *APIError {
	return NewAPIError(ErrorTypeMethodNotAllowed, message)
}

// ErrProvider creates a provider error wrapping the upstream failure. The
// client-facing message stays generic; cause is only for logs.
func ErrProvider(message string, cause error) *APIError {
	return NewAPIError(ErrorTypeProvider, message).WithCause(cause)
}

// ErrInternal creates an internal error.
func ErrInternal(message string, cause error) *APIError {
	return NewAPIError(ErrorTypeInternal, message).WithCause(cause)
}

// AsAPIError classifies err. Errors that are not already an *APIError become
// internal errors.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal("internal server error", err)
}

// IsType reports whether err is an *APIError of the given type.
func IsType(err error, errType ErrorType) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == errType
}
