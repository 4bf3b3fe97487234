package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// ErrInvalidEvent is wrapped by every error returned while detecting or decoding an event.
var ErrInvalidEvent = errors.New("invalid request event")

// eventShape holds just enough of an event to tell the gateway shapes apart.
type eventShape struct {
	Version        string          `json:"version"`
	RawPath        *string         `json:"rawPath"`
	HTTPMethod     string          `json:"httpMethod"`
	Method         string          `json:"method"`
	Path           *string         `json:"path"`
	RequestContext json.RawMessage `json:"requestContext"`
}

type requestContextShape struct {
	ELB *json.RawMessage `json:"elb"`
}

// DetectKind sniffs the JSON shape of a raw event.
func DetectKind(payload []byte) (EventKind, error) {
	var shape eventShape
	if err := json.Unmarshal(payload, &shape); err != nil {
		return "", fmt.Errorf("%w: event is not a JSON object: %w", ErrInvalidEvent, err)
	}

	if len(shape.RequestContext) > 0 {
		var rc requestContextShape
		if err := json.Unmarshal(shape.RequestContext, &rc); err == nil && rc.ELB != nil {
			return ALB, nil
		}
	}

	switch {
	case shape.Version == "2.0" && shape.RawPath != nil:
		return HTTPV2, nil
	case shape.Version != "" && shape.Method != "" && shape.Path != nil && shape.RawPath == nil:
		return Mesh, nil
	case shape.HTTPMethod != "":
		return RestV1, nil
	}

	return "", fmt.Errorf("%w: unrecognized gateway event shape", ErrInvalidEvent)
}

// DecodeRequestEvent parses a raw event of any supported kind.
func DecodeRequestEvent(payload []byte) (*RequestEvent, error) {
	kind, err := DetectKind(payload)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ALB:
		var e events.ALBTargetGroupRequest
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(kind, err)
		}
		return FromALB(e), nil
	case HTTPV2:
		var e events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(kind, err)
		}
		return FromHTTPAPI(e), nil
	case Mesh:
		var e MeshRequest
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(kind, err)
		}
		return FromMesh(e), nil
	default:
		var e events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, decodeError(kind, err)
		}
		return FromAPIGatewayProxy(e), nil
	}
}

func decodeError(kind EventKind, err error) error {
	return fmt.Errorf("%w: malformed %s event: %w", ErrInvalidEvent, kind, err)
}
