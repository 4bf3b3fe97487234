// Package exceptions maps invocation failures to gateway responses.
package exceptions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/runvoy/lambdahost/internal/config"
	"github.com/runvoy/lambdahost/internal/constants"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/internal/writer"
	"github.com/runvoy/lambdahost/pkg/api"
)

// internalErrorMessage replaces the message of every server-side failure in mapped responses.
const internalErrorMessage = "Internal Server Error"

// Handler turns errors into responses, or hands them back to the Lambda runtime.
type Handler struct {
	mapperDisabled bool
	defaultStatus  int
	writer         *writer.Writer
}

// New creates a Handler from cfg.
func New(cfg *config.Config, w *writer.Writer) *Handler {
	status := cfg.DefaultErrorStatus
	if status == 0 {
		status = constants.DefaultErrorStatus
	}
	return &Handler{
		mapperDisabled: cfg.DisableExceptionMapper,
		defaultStatus:  status,
		writer:         w,
	}
}

// Handle resolves err for the request ev.
//
// Container initialization failures are always returned. With the mapper disabled a
// recovered panic is re-raised with its original value, a failure reported by hosted code
// is returned wrapped once in INVOCATION_FAILED, and adapter errors are returned as is.
// With the mapper enabled every other error becomes a JSON error response.
func (h *Handler) Handle(err error, ev *api.RequestEvent, log *slog.Logger) (*api.ResponseEvent, error) {
	if err == nil {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	if apperrors.HasCode(err, apperrors.ErrCodeContainerInitialization) {
		return nil, err
	}

	if h.mapperDisabled {
		return nil, h.propagate(err)
	}

	status, body := h.classify(err)
	log.Error("invocation failed", "context", map[string]any{
		"status": status,
		"code":   body.Code,
		"error":  err.Error(),
	})

	payload, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return nil, apperrors.ErrInternalError("failed to encode error response", marshalErr)
	}

	header := http.Header{}
	header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	return h.writer.WriteBody(status, header, payload, ev), nil
}

func (h *Handler) propagate(err error) error {
	var panicErr *servlet.PanicError
	if errors.As(err, &panicErr) {
		panic(panicErr.Value)
	}

	var handlerErr *servlet.HandlerError
	if errors.As(err, &handlerErr) {
		return apperrors.ErrInvocationFailed(handlerErr.Err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.ErrInvocationFailed(err)
}

func (h *Handler) classify(err error) (int, api.ErrorResponse) {
	code := apperrors.GetErrorCode(err)

	switch {
	case code != "" && apperrors.IsClientError(err):
		return apperrors.GetStatusCode(err), api.ErrorResponse{Message: apperrors.GetErrorMessage(err), Code: code}
	case code == apperrors.ErrCodeInvalidPath:
		return apperrors.GetStatusCode(err), api.ErrorResponse{Message: apperrors.GetErrorMessage(err), Code: code}
	case code == apperrors.ErrCodeRequestTimeout:
		return http.StatusGatewayTimeout, api.ErrorResponse{Message: http.StatusText(http.StatusGatewayTimeout), Code: code}
	case code == apperrors.ErrCodeResponseTooLarge:
		return http.StatusBadGateway, api.ErrorResponse{Message: http.StatusText(http.StatusBadGateway), Code: code}
	case code == "":
		code = apperrors.ErrCodeInvocationFailed
	}
	return h.defaultStatus, api.ErrorResponse{Message: internalErrorMessage, Code: code}
}
