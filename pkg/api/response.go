package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// StatusDescription formats a status line the way ALB and VPC Lattice expect it, e.g. "200 OK".
func StatusDescription(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d", code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

// ToAPIGatewayProxyResponse converts to the REST API response shape.
func (r *ResponseEvent) ToAPIGatewayProxyResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:        r.StatusCode,
		Headers:           r.Headers,
		MultiValueHeaders: r.MultiValueHeaders,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
	}
}

// ToHTTPAPIResponse converts to the HTTP API response shape.
func (r *ResponseEvent) ToHTTPAPIResponse() events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode:        r.StatusCode,
		Headers:           r.Headers,
		MultiValueHeaders: r.MultiValueHeaders,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
		Cookies:           r.Cookies,
	}
}

// ToALBResponse converts to the ALB target group response shape.
func (r *ResponseEvent) ToALBResponse() events.ALBTargetGroupResponse {
	desc := r.StatusDescription
	if desc == "" {
		desc = StatusDescription(r.StatusCode)
	}
	return events.ALBTargetGroupResponse{
		StatusCode:        r.StatusCode,
		StatusDescription: desc,
		Headers:           r.Headers,
		MultiValueHeaders: r.MultiValueHeaders,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
	}
}

// ToMeshResponse converts to the VPC Lattice response shape.
func (r *ResponseEvent) ToMeshResponse() MeshResponse {
	desc := r.StatusDescription
	if desc == "" {
		desc = StatusDescription(r.StatusCode)
	}
	return MeshResponse{
		StatusCode:        r.StatusCode,
		StatusDescription: desc,
		Headers:           r.Headers,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
	}
}

// Marshal encodes the response in the wire shape of the given gateway.
func (r *ResponseEvent) Marshal(kind EventKind) ([]byte, error) {
	switch kind {
	case RestV1:
		return json.Marshal(r.ToAPIGatewayProxyResponse())
	case HTTPV2:
		return json.Marshal(r.ToHTTPAPIResponse())
	case ALB:
		return json.Marshal(r.ToALBResponse())
	case Mesh:
		return json.Marshal(r.ToMeshResponse())
	default:
		return json.Marshal(r)
	}
}

// DecodeResponseEvent parses a response payload of any gateway shape.
// The ResponseEvent fields are a superset of every shape, so one decode covers them all.
func DecodeResponseEvent(payload []byte) (*ResponseEvent, error) {
	var resp ResponseEvent
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode == 0 {
		return nil, fmt.Errorf("failed to decode response: missing statusCode")
	}
	return &resp, nil
}
