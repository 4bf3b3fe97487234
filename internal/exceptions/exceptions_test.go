package exceptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/runvoy/lambdahost/internal/config"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/internal/testutil"
	"github.com/runvoy/lambdahost/internal/writer"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(disableMapper bool) *Handler {
	cfg := testutil.TestConfig()
	cfg.DisableExceptionMapper = disableMapper
	return New(cfg, writer.New(nil))
}

func decodeBody(t *testing.T, resp *api.ResponseEvent) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHandle_Nil(t *testing.T) {
	resp, err := newHandler(false).Handle(nil, testutil.NewEventBuilder(api.RestV1).Build(), testutil.SilentLogger())
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestHandle_InitializationIsFatal(t *testing.T) {
	initErr := apperrors.ErrContainerInitialization("boot failed", errors.New("no database"))

	for _, disabled := range []bool{false, true} {
		resp, err := newHandler(disabled).Handle(initErr, testutil.NewEventBuilder(api.RestV1).Build(), testutil.SilentLogger())
		assert.Nil(t, resp)
		assert.Same(t, initErr, err)
	}
}

func TestHandle_Mapped(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{
			name:            "client error keeps its status",
			err:             apperrors.ErrInvalidRequestEvent("missing httpMethod", nil),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    apperrors.ErrCodeInvalidRequestEvent,
			expectedMessage: "missing httpMethod",
		},
		{
			name:            "security context parse",
			err:             apperrors.ErrSecurityContextParse("bad claims", nil),
			expectedStatus:  http.StatusUnauthorized,
			expectedCode:    apperrors.ErrCodeSecurityContextParse,
			expectedMessage: "bad claims",
		},
		{
			name:            "timeout",
			err:             apperrors.ErrRequestTimeout("async handler did not complete", nil),
			expectedStatus:  http.StatusGatewayTimeout,
			expectedCode:    apperrors.ErrCodeRequestTimeout,
			expectedMessage: "Gateway Timeout",
		},
		{
			name:            "response too large",
			err:             servlet.ErrResponseTooLarge,
			expectedStatus:  http.StatusBadGateway,
			expectedCode:    apperrors.ErrCodeResponseTooLarge,
			expectedMessage: "Bad Gateway",
		},
		{
			name:            "handler error is sanitized",
			err:             &servlet.HandlerError{Err: errors.New("db password wrong")},
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    apperrors.ErrCodeInvocationFailed,
			expectedMessage: "Internal Server Error",
		},
		{
			name:            "panic is sanitized",
			err:             &servlet.PanicError{Value: "boom"},
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    apperrors.ErrCodeInvocationFailed,
			expectedMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newHandler(false).Handle(tt.err, testutil.NewEventBuilder(api.RestV1).Build(), testutil.SilentLogger())
			require.NoError(t, err)
			require.NotNil(t, resp)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, []string{"application/json"}, resp.MultiValueHeaders["Content-Type"])

			body := decodeBody(t, resp)
			assert.Equal(t, tt.expectedCode, body.Code)
			assert.Equal(t, tt.expectedMessage, body.Message)
		})
	}
}

func TestHandle_CustomDefaultStatus(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.DefaultErrorStatus = http.StatusServiceUnavailable
	h := New(cfg, writer.New(nil))

	resp, err := h.Handle(errors.New("x"), testutil.NewEventBuilder(api.ALB).Build(), testutil.SilentLogger())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "503 Service Unavailable", resp.StatusDescription)
}

func TestHandle_MapperDisabled(t *testing.T) {
	h := newHandler(true)
	ev := testutil.NewEventBuilder(api.HTTPV2).Build()

	t.Run("panic value is re-raised unchanged", func(t *testing.T) {
		original := errors.New("unchecked")
		assert.PanicsWithValue(t, original, func() {
			_, _ = h.Handle(&servlet.PanicError{Value: original}, ev, testutil.SilentLogger())
		})
	})

	t.Run("handler error is wrapped once", func(t *testing.T) {
		cause := errors.New("checked failure")

		resp, err := h.Handle(&servlet.HandlerError{Err: cause}, ev, testutil.SilentLogger())
		assert.Nil(t, resp)
		testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeInvocationFailed)
		assert.Same(t, cause, errors.Unwrap(err))
	})

	t.Run("adapter errors pass through", func(t *testing.T) {
		timeout := apperrors.ErrRequestTimeout("late", nil)

		resp, err := h.Handle(timeout, ev, testutil.SilentLogger())
		assert.Nil(t, resp)
		assert.Same(t, timeout, err)
	})

	t.Run("plain errors are wrapped", func(t *testing.T) {
		cause := errors.New("plain")

		_, err := h.Handle(cause, ev, testutil.SilentLogger())
		testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeInvocationFailed)
		assert.ErrorIs(t, err, cause)
	})
}

func TestNew_DefaultStatusFallback(t *testing.T) {
	h := New(&config.Config{}, writer.New(nil))
	assert.Equal(t, http.StatusInternalServerError, h.defaultStatus)
}
