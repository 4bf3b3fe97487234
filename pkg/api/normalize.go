package api

import (
	"github.com/aws/aws-lambda-go/events"
)

// NormalizeMultiValue returns the multi-valued form of a header or query map.
// When multi is present it is returned untouched; otherwise every single value
// becomes a one-element list. Applying it to its own result is a no-op.
func NormalizeMultiValue(single map[string]string, multi map[string][]string) map[string][]string {
	if len(multi) > 0 || len(single) == 0 {
		return multi
	}

	out := make(map[string][]string, len(single))
	for k, v := range single {
		out[k] = []string{v}
	}
	return out
}

// NormalizeAPIGatewayProxy synthesizes the multi-valued header and query maps of a REST API event in place.
func NormalizeAPIGatewayProxy(e *events.APIGatewayProxyRequest) {
	e.MultiValueHeaders = NormalizeMultiValue(e.Headers, e.MultiValueHeaders)
	e.MultiValueQueryStringParameters = NormalizeMultiValue(e.QueryStringParameters, e.MultiValueQueryStringParameters)
}

// NormalizeALB synthesizes the multi-valued header and query maps of an ALB event in place.
func NormalizeALB(e *events.ALBTargetGroupRequest) {
	e.MultiValueHeaders = NormalizeMultiValue(e.Headers, e.MultiValueHeaders)
	e.MultiValueQueryStringParameters = NormalizeMultiValue(e.QueryStringParameters, e.MultiValueQueryStringParameters)
}
