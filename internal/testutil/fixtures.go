// Package testutil provides shared testing utilities and helpers.
package testutil

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/config"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
)

// testContextTimeout bounds contexts returned by TestContext.
const testContextTimeout = 5 * time.Second

// EventBuilder provides a fluent interface for building gateway events of any kind.
type EventBuilder struct {
	kind         api.EventKind
	method       string
	path         string
	headers      map[string][]string
	query        map[string][]string
	body         string
	base64       bool
	cookies      []string
	stage        string
	requestID    string
	sourceIP     string
	authorizer   map[string]any
	jwtClaims    map[string]string
	userARN      string
	multiValue   bool
	meshIdentity api.MeshRequestIdentity
}

// NewEventBuilder creates a builder for a GET / request of the given kind.
func NewEventBuilder(kind api.EventKind) *EventBuilder {
	return &EventBuilder{
		kind:      kind,
		method:    "GET",
		path:      "/",
		headers:   map[string][]string{},
		query:     map[string][]string{},
		stage:     "test",
		requestID: "test-request-id",
		sourceIP:  "192.0.2.10",
	}
}

// WithMethod sets the HTTP method.
func (b *EventBuilder) WithMethod(method string) *EventBuilder {
	b.method = method
	return b
}

// WithPath sets the request path.
func (b *EventBuilder) WithPath(path string) *EventBuilder {
	b.path = path
	return b
}

// WithHeader adds header values.
func (b *EventBuilder) WithHeader(name string, values ...string) *EventBuilder {
	b.headers[name] = append(b.headers[name], values...)
	return b
}

// WithQuery adds query values.
func (b *EventBuilder) WithQuery(name string, values ...string) *EventBuilder {
	b.query[name] = append(b.query[name], values...)
	return b
}

// WithBody sets a text body.
func (b *EventBuilder) WithBody(body string) *EventBuilder {
	b.body = body
	b.base64 = false
	return b
}

// WithBinaryBody sets a base64-encoded body.
func (b *EventBuilder) WithBinaryBody(body []byte) *EventBuilder {
	b.body = base64.StdEncoding.EncodeToString(body)
	b.base64 = true
	return b
}

// WithCookie adds an HTTP API cookie.
func (b *EventBuilder) WithCookie(cookie string) *EventBuilder {
	b.cookies = append(b.cookies, cookie)
	return b
}

// WithStage sets the API Gateway stage.
func (b *EventBuilder) WithStage(stage string) *EventBuilder {
	b.stage = stage
	return b
}

// WithRequestID sets the gateway request ID.
func (b *EventBuilder) WithRequestID(id string) *EventBuilder {
	b.requestID = id
	return b
}

// WithAuthorizer sets the REST API authorizer block or the HTTP API lambda authorizer context.
func (b *EventBuilder) WithAuthorizer(authorizer map[string]any) *EventBuilder {
	b.authorizer = authorizer
	return b
}

// WithJWTClaims sets HTTP API JWT authorizer claims.
func (b *EventBuilder) WithJWTClaims(claims map[string]string) *EventBuilder {
	b.jwtClaims = claims
	return b
}

// WithUserARN sets the IAM caller ARN.
func (b *EventBuilder) WithUserARN(arn string) *EventBuilder {
	b.userARN = arn
	return b
}

// WithMeshIdentity sets the VPC Lattice caller identity.
func (b *EventBuilder) WithMeshIdentity(identity api.MeshRequestIdentity) *EventBuilder {
	b.meshIdentity = identity
	return b
}

// WithMultiValueHeaders makes ALB events use the multi-value form.
func (b *EventBuilder) WithMultiValueHeaders() *EventBuilder {
	b.multiValue = true
	return b
}

// Typed returns the event as its aws-lambda-go (or mesh) type.
func (b *EventBuilder) Typed() any {
	switch b.kind {
	case api.HTTPV2:
		return b.httpAPI()
	case api.ALB:
		return b.alb()
	case api.Mesh:
		return b.mesh()
	default:
		return b.restV1()
	}
}

// Build returns the event converted to the gateway-independent model.
func (b *EventBuilder) Build() *api.RequestEvent {
	switch e := b.Typed().(type) {
	case events.APIGatewayV2HTTPRequest:
		return api.FromHTTPAPI(e)
	case events.ALBTargetGroupRequest:
		return api.FromALB(e)
	case api.MeshRequest:
		return api.FromMesh(e)
	default:
		return api.FromAPIGatewayProxy(e.(events.APIGatewayProxyRequest))
	}
}

// JSON returns the raw event payload as the gateway would send it.
func (b *EventBuilder) JSON() []byte {
	data, err := json.Marshal(b.Typed())
	if err != nil {
		panic(err)
	}
	return data
}

func (b *EventBuilder) restV1() events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:                      b.method,
		Path:                            b.path,
		MultiValueHeaders:               b.headers,
		MultiValueQueryStringParameters: b.query,
		Body:                            b.body,
		IsBase64Encoded:                 b.base64,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:  b.requestID,
			Stage:      b.stage,
			DomainName: "api.example.com",
			Protocol:   "HTTP/1.1",
			Authorizer: b.authorizer,
			Identity: events.APIGatewayRequestIdentity{
				SourceIP: b.sourceIP,
				UserArn:  b.userARN,
			},
		},
	}
}

func (b *EventBuilder) httpAPI() events.APIGatewayV2HTTPRequest {
	headers := make(map[string]string, len(b.headers))
	for k, v := range b.headers {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}

	e := events.APIGatewayV2HTTPRequest{
		Version:         "2.0",
		RouteKey:        "$default",
		RawPath:         b.path,
		RawQueryString:  encodeQuery(b.query),
		Cookies:         b.cookies,
		Headers:         headers,
		Body:            b.body,
		IsBase64Encoded: b.base64,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID:  b.requestID,
			Stage:      "$default",
			DomainName: "id.execute-api.us-east-1.amazonaws.com",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   b.method,
				Path:     b.path,
				Protocol: "HTTP/1.1",
				SourceIP: b.sourceIP,
			},
		},
	}

	if b.authorizer != nil || b.jwtClaims != nil || b.userARN != "" {
		auth := &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{Lambda: b.authorizer}
		if b.jwtClaims != nil {
			auth.JWT = &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{Claims: b.jwtClaims}
		}
		if b.userARN != "" {
			auth.IAM = &events.APIGatewayV2HTTPRequestContextAuthorizerIAMDescription{UserARN: b.userARN}
		}
		e.RequestContext.Authorizer = auth
	}

	return e
}

func (b *EventBuilder) alb() events.ALBTargetGroupRequest {
	e := events.ALBTargetGroupRequest{
		HTTPMethod:      b.method,
		Path:            b.path,
		Body:            b.body,
		IsBase64Encoded: b.base64,
	}
	e.RequestContext.ELB.TargetGroupArn = "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/test/abc"

	if b.multiValue {
		e.MultiValueHeaders = b.headers
		e.MultiValueQueryStringParameters = b.query
		return e
	}

	e.Headers = lastValues(b.headers)
	e.QueryStringParameters = lastValues(b.query)
	return e
}

func (b *EventBuilder) mesh() api.MeshRequest {
	return api.MeshRequest{
		Version:               "2.0",
		Method:                b.method,
		Path:                  b.path,
		Headers:               b.headers,
		QueryStringParameters: b.query,
		Body:                  b.body,
		IsBase64Encoded:       b.base64,
		RequestContext: api.MeshRequestContext{
			ServiceNetworkARN: "arn:aws:vpc-lattice:us-east-1:123456789012:servicenetwork/sn-test",
			ServiceARN:        "arn:aws:vpc-lattice:us-east-1:123456789012:service/svc-test",
			TargetGroupARN:    "arn:aws:vpc-lattice:us-east-1:123456789012:targetgroup/tg-test",
			Identity:          b.meshIdentity,
			Region:            "us-east-1",
		},
	}
}

func encodeQuery(query map[string][]string) string {
	values := make([]string, 0, len(query))
	for k, vs := range query {
		for _, v := range vs {
			values = append(values, k+"="+v)
		}
	}
	return strings.Join(values, "&")
}

func lastValues(multi map[string][]string) map[string]string {
	if len(multi) == 0 {
		return nil
	}
	out := make(map[string]string, len(multi))
	for k, v := range multi {
		if len(v) > 0 {
			out[k] = v[len(v)-1]
		}
	}
	return out
}

// TestConfig returns the default configuration with a short async timeout.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.AsyncTimeout = time.Second
	return cfg
}

// TestContext creates a test context with a reasonable timeout.
// Note: The cancel function is intentionally not returned since test contexts
// are expected to be short-lived and will be cleaned up when the test completes.
func TestContext() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testContextTimeout)
	_ = cancel // Silence unused warning - context will timeout automatically
	return ctx
}

// TestLogger creates a logger suitable for testing (outputs to stderr).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}))
}

// SilentLogger creates a logger that discards all output.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
