// Package errors provides error types and handling for lambdahost.
// It includes custom error types with HTTP status codes and error codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/runvoy/lambdahost/internal/constants"
)

// AppError represents an adapter error with an associated HTTP status code.
// It is the single well-known error type returned across the invocation boundary.
type AppError struct {
	// Code is an optional error code string for programmatic handling
	Code string
	// Message is a user-friendly error message
	Message string
	// StatusCode is the HTTP status code used when the error is mapped to a response
	StatusCode int
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Predefined error codes.
const (
	// Client error codes.
	ErrCodeInvalidRequestEvent  = "INVALID_REQUEST_EVENT"
	ErrCodeSecurityContextParse = "SECURITY_CONTEXT_PARSE"
	ErrCodeInvalidPath          = "INVALID_PATH"

	// Server error codes.
	ErrCodeInternalError           = "INTERNAL_ERROR"
	ErrCodeInvocationFailed        = "INVOCATION_FAILED"
	ErrCodeContainerInitialization = "CONTAINER_INITIALIZATION"
	ErrCodeRequestTimeout          = "REQUEST_TIMEOUT"
	ErrCodeResponseTooLarge        = "RESPONSE_TOO_LARGE"
)

// NewClientError creates a new client error (4xx status codes).
func NewClientError(statusCode int, code, message string, cause error) *AppError {
	if statusCode < constants.HTTPStatusClientError || statusCode >= constants.HTTPStatusServerError {
		panic(fmt.Sprintf("NewClientError called with non-client status code: %d", statusCode))
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewServerError creates a new server error (5xx status codes).
func NewServerError(statusCode int, code, message string, cause error) *AppError {
	if statusCode < constants.HTTPStatusServerError || statusCode >= constants.HTTPStatusMax {
		panic(fmt.Sprintf("NewServerError called with non-server status code: %d", statusCode))
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// Convenience constructors for common errors

// ErrInvalidRequestEvent creates an error for gateway events missing mandatory fields (400).
func ErrInvalidRequestEvent(message string, cause error) *AppError {
	return NewClientError(http.StatusBadRequest, ErrCodeInvalidRequestEvent, message, cause)
}

// ErrSecurityContextParse creates an error for malformed authorizer claims (401).
func ErrSecurityContextParse(message string, cause error) *AppError {
	return NewClientError(http.StatusUnauthorized, ErrCodeSecurityContextParse, message, cause)
}

// ErrInvalidPath creates an error for request paths rejected by the path validator.
// The status is configurable, so it is not forced into the client range.
func ErrInvalidPath(statusCode int, path string) *AppError {
	return &AppError{
		Code:       ErrCodeInvalidPath,
		Message:    fmt.Sprintf("invalid request path %q", path),
		StatusCode: statusCode,
	}
}

// ErrInternalError creates an internal server error (500).
func ErrInternalError(message string, cause error) *AppError {
	return NewServerError(http.StatusInternalServerError, ErrCodeInternalError, message, cause)
}

// ErrInvocationFailed wraps a failure reported by the hosted handler (500).
// The original error stays reachable through errors.Unwrap.
func ErrInvocationFailed(cause error) *AppError {
	return NewServerError(http.StatusInternalServerError, ErrCodeInvocationFailed, "invocation failed", cause)
}

// ErrContainerInitialization creates an error for a framework that failed to start (500).
// Initialization errors are fatal and are never mapped to a response.
func ErrContainerInitialization(message string, cause error) *AppError {
	return NewServerError(http.StatusInternalServerError, ErrCodeContainerInitialization, message, cause)
}

// ErrRequestTimeout creates an error for asynchronous handlers that did not complete in time (504).
func ErrRequestTimeout(message string, cause error) *AppError {
	return NewServerError(http.StatusGatewayTimeout, ErrCodeRequestTimeout, message, cause)
}

// ErrResponseTooLarge creates an error for responses exceeding the gateway payload limit (502).
func ErrResponseTooLarge(message string, cause error) *AppError {
	return NewServerError(http.StatusBadGateway, ErrCodeResponseTooLarge, message, cause)
}

// GetStatusCode extracts the HTTP status code from an error.
// Returns 500 if the error is not an AppError.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetErrorCode extracts the error code from an error.
// Returns empty string if the error is not an AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetErrorMessage extracts a user-friendly message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HasCode reports whether any error in err's chain is an AppError with the given code.
func HasCode(err error, code string) bool {
	return errors.Is(err, &AppError{Code: code})
}

// IsClientError reports whether the error maps to a 4xx status code.
func IsClientError(err error) bool {
	status := GetStatusCode(err)
	return status >= constants.HTTPStatusClientError && status < constants.HTTPStatusServerError
}
