package lambdaapi

import (
	"context"

	"github.com/runvoy/lambdahost/internal/container"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
)

// FunctionURLHandler serves Lambda Function URL events. Function URLs use the HTTP API
// payload v2 format, so requests go through the HTTP API reader and writer.
func FunctionURLHandler(
	h *container.Handler,
) func(context.Context, events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	return func(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
		resp, err := h.HandleRequest(ctx, api.FromHTTPAPI(functionURLToHTTPAPI(req)))
		if err != nil {
			return events.LambdaFunctionURLResponse{}, err
		}
		return events.LambdaFunctionURLResponse{
			StatusCode:      resp.StatusCode,
			Headers:         resp.Headers,
			Body:            resp.Body,
			IsBase64Encoded: resp.IsBase64Encoded,
			Cookies:         resp.Cookies,
		}, nil
	}
}

func functionURLToHTTPAPI(req events.LambdaFunctionURLRequest) events.APIGatewayV2HTTPRequest {
	rc := req.RequestContext
	out := events.APIGatewayV2HTTPRequest{
		Version:               req.Version,
		RouteKey:              "$default",
		RawPath:               req.RawPath,
		RawQueryString:        req.RawQueryString,
		Cookies:               req.Cookies,
		Headers:               req.Headers,
		QueryStringParameters: req.QueryStringParameters,
		Body:                  req.Body,
		IsBase64Encoded:       req.IsBase64Encoded,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:     "$default",
			AccountID:    rc.AccountID,
			Stage:        "$default",
			RequestID:    rc.RequestID,
			APIID:        rc.APIID,
			DomainName:   rc.DomainName,
			DomainPrefix: rc.DomainPrefix,
			Time:         rc.Time,
			TimeEpoch:    rc.TimeEpoch,
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    rc.HTTP.Method,
				Path:      rc.HTTP.Path,
				Protocol:  rc.HTTP.Protocol,
				SourceIP:  rc.HTTP.SourceIP,
				UserAgent: rc.HTTP.UserAgent,
			},
		},
	}

	if rc.Authorizer != nil && rc.Authorizer.IAM != nil {
		iam := rc.Authorizer.IAM
		out.RequestContext.Authorizer = &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
			IAM: &events.APIGatewayV2HTTPRequestContextAuthorizerIAMDescription{
				AccessKey: iam.AccessKey,
				AccountID: iam.AccountID,
				CallerID:  iam.CallerID,
				UserARN:   iam.UserARN,
				UserID:    iam.UserID,
			},
		}
	}
	return out
}
