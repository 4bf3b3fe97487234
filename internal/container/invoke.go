package container

import (
	"context"
	"fmt"
	"io"

	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/logger"
	"github.com/runvoy/lambdahost/internal/metrics"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
)

// HandleAPIGatewayProxy serves a REST API (payload v1) event.
func (h *Handler) HandleAPIGatewayProxy(
	ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := h.HandleRequest(ctx, api.FromAPIGatewayProxy(req))
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return resp.ToAPIGatewayProxyResponse(), nil
}

// HandleHTTPAPI serves an HTTP API (payload v2) event.
func (h *Handler) HandleHTTPAPI(
	ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := h.HandleRequest(ctx, api.FromHTTPAPI(req))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return resp.ToHTTPAPIResponse(), nil
}

// HandleALB serves an application load balancer event.
func (h *Handler) HandleALB(
	ctx context.Context, req events.ALBTargetGroupRequest) (events.ALBTargetGroupResponse, error) {
	resp, err := h.HandleRequest(ctx, api.FromALB(req))
	if err != nil {
		return events.ALBTargetGroupResponse{}, err
	}
	return resp.ToALBResponse(), nil
}

// HandleMesh serves a VPC Lattice event.
func (h *Handler) HandleMesh(ctx context.Context, req api.MeshRequest) (api.MeshResponse, error) {
	resp, err := h.HandleRequest(ctx, api.FromMesh(req))
	if err != nil {
		return api.MeshResponse{}, err
	}
	return resp.ToMeshResponse(), nil
}

// Invoke decodes a raw event of any supported kind and encodes the response in the same
// gateway shape. It implements lambda.Handler.
//
// Events that match no gateway shape are answered in the REST API shape, the only one
// every gateway accepts, unless the exception mapper is disabled.
func (h *Handler) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	ev, err := api.DecodeRequestEvent(payload)
	if err != nil {
		return h.invalidEvent(ctx, apperrors.ErrInvalidRequestEvent("failed to decode event", err))
	}

	resp, err := h.HandleRequest(ctx, ev)
	if err != nil {
		return nil, err
	}

	out, err := resp.Marshal(ev.Kind)
	if err != nil {
		return nil, apperrors.ErrInternalError("failed to encode response", err)
	}
	return out, nil
}

// Proxy reads one raw event from in and writes the encoded response to out.
func (h *Handler) Proxy(ctx context.Context, in io.Reader, out io.Writer) error {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}

	resp, err := h.Invoke(ctx, payload)
	if err != nil {
		return err
	}

	if _, err = out.Write(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func (h *Handler) invalidEvent(ctx context.Context, cause error) ([]byte, error) {
	ev := &api.RequestEvent{Kind: api.RestV1}
	log := logger.DeriveRequestLogger(ctx, h.log)
	log.Warn("rejected malformed event", "error", cause)

	resp, err := h.exceptions.Handle(cause, ev, log)
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveInvocation(metrics.KindUnknown, resp.StatusCode, 0)

	out, err := resp.Marshal(ev.Kind)
	if err != nil {
		return nil, apperrors.ErrInternalError("failed to encode response", err)
	}
	return out, nil
}
