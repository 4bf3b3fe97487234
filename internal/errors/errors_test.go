package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name: "error with cause",
			err: &AppError{
				Code:       ErrCodeInvalidRequestEvent,
				Message:    "validation failed",
				StatusCode: http.StatusBadRequest,
				Cause:      errors.New("field x is required"),
			},
			expected: "validation failed: field x is required",
		},
		{
			name: "error without cause",
			err: &AppError{
				Code:       ErrCodeInvalidPath,
				Message:    "resource not found",
				StatusCode: http.StatusNotFound,
				Cause:      nil,
			},
			expected: "resource not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:       ErrCodeInternalError,
		Message:    "something went wrong",
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}

	unwrapped := err.Unwrap()
	assert.Equal(t, cause, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		target   error
		expected bool
	}{
		{
			name: "same error code matches",
			err: &AppError{
				Code:       ErrCodeSecurityContextParse,
				Message:    "unauthorized",
				StatusCode: http.StatusUnauthorized,
			},
			target: &AppError{
				Code:       ErrCodeSecurityContextParse,
				Message:    "different message",
				StatusCode: http.StatusUnauthorized,
			},
			expected: true,
		},
		{
			name: "different error codes don't match",
			err: &AppError{
				Code:       ErrCodeSecurityContextParse,
				Message:    "unauthorized",
				StatusCode: http.StatusUnauthorized,
			},
			target: &AppError{
				Code:       ErrCodeInvalidPath,
				Message:    "not found",
				StatusCode: http.StatusNotFound,
			},
			expected: false,
		},
		{
			name: "empty code doesn't match",
			err: &AppError{
				Code:       "",
				Message:    "error",
				StatusCode: http.StatusInternalServerError,
			},
			target: &AppError{
				Code:       "",
				Message:    "error",
				StatusCode: http.StatusInternalServerError,
			},
			expected: false,
		},
		{
			name: "non-AppError doesn't match",
			err: &AppError{
				Code:       ErrCodeSecurityContextParse,
				Message:    "unauthorized",
				StatusCode: http.StatusUnauthorized,
			},
			target:   errors.New("some other error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Is(tt.target)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNewClientError(t *testing.T) {
	t.Run("valid client error", func(t *testing.T) {
		err := NewClientError(http.StatusBadRequest, ErrCodeInvalidRequestEvent, "test error", nil)
		assert.Equal(t, ErrCodeInvalidRequestEvent, err.Code)
		assert.Equal(t, "test error", err.Message)
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	})

	t.Run("panics with non-client status code", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = NewClientError(http.StatusInternalServerError, "CODE", "test", nil)
		})
	})

	t.Run("panics with status code below 400", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = NewClientError(http.StatusOK, "CODE", "test", nil)
		})
	})
}

func TestNewServerError(t *testing.T) {
	t.Run("valid server error", func(t *testing.T) {
		err := NewServerError(http.StatusInternalServerError, ErrCodeInternalError, "test error", nil)
		assert.Equal(t, ErrCodeInternalError, err.Code)
		assert.Equal(t, "test error", err.Message)
		assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	})

	t.Run("panics with non-server status code", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = NewServerError(http.StatusBadRequest, "CODE", "test", nil)
		})
	})

	t.Run("panics with status code 600+", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = NewServerError(600, "CODE", "test", nil)
		})
	})
}

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"invalid request event", ErrInvalidRequestEvent("missing method", cause), ErrCodeInvalidRequestEvent, http.StatusBadRequest},
		{"security context parse", ErrSecurityContextParse("bad claims", cause), ErrCodeSecurityContextParse, http.StatusUnauthorized},
		{"internal error", ErrInternalError("boom", cause), ErrCodeInternalError, http.StatusInternalServerError},
		{"invocation failed", ErrInvocationFailed(cause), ErrCodeInvocationFailed, http.StatusInternalServerError},
		{"container initialization", ErrContainerInitialization("boot failed", cause), ErrCodeContainerInitialization, http.StatusInternalServerError},
		{"request timeout", ErrRequestTimeout("too slow", cause), ErrCodeRequestTimeout, http.StatusGatewayTimeout},
		{"response too large", ErrResponseTooLarge("too big", cause), ErrCodeResponseTooLarge, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Same(t, cause, tt.err.Unwrap())
		})
	}
}

func TestErrInvalidPath(t *testing.T) {
	err := ErrInvalidPath(http.StatusNotFound, "/../..")
	assert.Equal(t, ErrCodeInvalidPath, err.Code)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Contains(t, err.Message, "/../..")
	assert.Nil(t, err.Cause)
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "AppError returns its status code",
			err:      ErrRequestTimeout("test", nil),
			expected: http.StatusGatewayTimeout,
		},
		{
			name:     "wrapped AppError returns its status code",
			err:      errors.Join(ErrInvalidRequestEvent("test", nil), errors.New("other")),
			expected: http.StatusBadRequest,
		},
		{
			name:     "non-AppError returns 500",
			err:      errors.New("generic error"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetStatusCode(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "AppError returns its error code",
			err:      ErrSecurityContextParse("test", nil),
			expected: ErrCodeSecurityContextParse,
		},
		{
			name:     "wrapped AppError returns its error code",
			err:      fmt.Errorf("dispatch: %w", ErrRequestTimeout("test", nil)),
			expected: ErrCodeRequestTimeout,
		},
		{
			name:     "non-AppError returns empty string",
			err:      errors.New("generic error"),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetErrorCode(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "AppError returns its message",
			err:      ErrInvalidRequestEvent("missing path", nil),
			expected: "missing path",
		},
		{
			name:     "non-AppError returns error string",
			err:      errors.New("generic error"),
			expected: "generic error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetErrorMessage(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrContainerInitialization("boot", errors.New("db down")))

	assert.True(t, HasCode(err, ErrCodeContainerInitialization))
	assert.False(t, HasCode(err, ErrCodeRequestTimeout))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInternalError))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrInvalidRequestEvent("x", nil)))
	assert.True(t, IsClientError(ErrInvalidPath(http.StatusNotFound, "/..")))
	assert.False(t, IsClientError(ErrRequestTimeout("x", nil)))
	assert.False(t, IsClientError(errors.New("plain")))
}

func TestErrorWrapping(t *testing.T) {
	t.Run("can wrap and unwrap errors", func(t *testing.T) {
		baseErr := errors.New("base error")
		appErr := ErrInvocationFailed(baseErr)

		require.True(t, errors.Is(appErr, baseErr))

		var targetErr *AppError
		require.True(t, errors.As(appErr, &targetErr))
		assert.Equal(t, ErrCodeInvocationFailed, targetErr.Code)
		assert.Same(t, baseErr, errors.Unwrap(appErr))
	})

	t.Run("error chain preserves AppError properties", func(t *testing.T) {
		baseErr := errors.New("base error")
		appErr := ErrInvalidRequestEvent("validation failed", baseErr)

		assert.Equal(t, http.StatusBadRequest, GetStatusCode(appErr))
		assert.Equal(t, ErrCodeInvalidRequestEvent, GetErrorCode(appErr))
	})
}
