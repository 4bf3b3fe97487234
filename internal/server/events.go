package server

import (
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
)

const (
	localAccountID = "123456789012"
	localRegion    = "us-east-1"
)

// NewEvent converts an HTTP request into a gateway event of the given kind.
// Bodies that are not valid UTF-8 are base64 encoded, as the gateways do.
func NewEvent(req *http.Request, kind api.EventKind, stage, requestID string) (*api.RequestEvent, error) {
	body, isBase64, err := readBody(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sourceIP := clientIP(req.RemoteAddr)

	// Gateways append the caller to X-Forwarded-For.
	req = req.Clone(req.Context())
	if prior := req.Header.Get(constants.ForwardedForHeader); prior != "" {
		req.Header.Set(constants.ForwardedForHeader, prior+", "+sourceIP)
	} else {
		req.Header.Set(constants.ForwardedForHeader, sourceIP)
	}

	switch kind {
	case api.HTTPV2:
		return api.FromHTTPAPI(httpAPIEvent(req, body, isBase64, requestID, sourceIP, now)), nil
	case api.ALB:
		return api.FromALB(albEvent(req, body, isBase64)), nil
	case api.Mesh:
		return api.FromMesh(meshEvent(req, body, isBase64, now)), nil
	case api.RestV1:
		return api.FromAPIGatewayProxy(restEvent(req, body, isBase64, stage, requestID, sourceIP, now)), nil
	default:
		return nil, fmt.Errorf("unsupported event kind %q", kind)
	}
}

func restEvent(
	req *http.Request, body string, isBase64 bool, stage, requestID, sourceIP string, now time.Time,
) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		Resource:                        "/{proxy+}",
		HTTPMethod:                      req.Method,
		Path:                            req.URL.Path,
		MultiValueHeaders:               req.Header.Clone(),
		MultiValueQueryStringParameters: req.URL.Query(),
		PathParameters:                  map[string]string{"proxy": strings.TrimPrefix(req.URL.Path, "/")},
		Body:                            body,
		IsBase64Encoded:                 isBase64,
		RequestContext: events.APIGatewayProxyRequestContext{
			AccountID:        localAccountID,
			RequestID:        requestID,
			Stage:            stage,
			DomainName:       req.Host,
			Protocol:         req.Proto,
			HTTPMethod:       req.Method,
			Path:             "/" + stage + req.URL.Path,
			ResourcePath:     "/{proxy+}",
			RequestTimeEpoch: now.UnixMilli(),
			Identity: events.APIGatewayRequestIdentity{
				SourceIP:  sourceIP,
				UserAgent: req.UserAgent(),
			},
		},
	}
}

func httpAPIEvent(
	req *http.Request, body string, isBase64 bool, requestID, sourceIP string, now time.Time,
) events.APIGatewayV2HTTPRequest {
	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if strings.EqualFold(name, "Cookie") {
			continue
		}
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}

	var cookies []string
	for _, c := range req.Cookies() {
		cookies = append(cookies, c.String())
	}

	return events.APIGatewayV2HTTPRequest{
		Version:         "2.0",
		RouteKey:        "$default",
		RawPath:         req.URL.EscapedPath(),
		RawQueryString:  req.URL.RawQuery,
		Cookies:         cookies,
		Headers:         headers,
		Body:            body,
		IsBase64Encoded: isBase64,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:   "$default",
			AccountID:  localAccountID,
			Stage:      "$default",
			RequestID:  requestID,
			DomainName: req.Host,
			TimeEpoch:  now.UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    req.Method,
				Path:      req.URL.Path,
				Protocol:  req.Proto,
				SourceIP:  sourceIP,
				UserAgent: req.UserAgent(),
			},
		},
	}
}

// albEvent builds a multi-value ALB event. ALB passes query keys and values percent-encoded.
func albEvent(req *http.Request, body string, isBase64 bool) events.ALBTargetGroupRequest {
	query := make(map[string][]string)
	for k, values := range req.URL.Query() {
		key := url.QueryEscape(k)
		for _, v := range values {
			query[key] = append(query[key], url.QueryEscape(v))
		}
	}

	e := events.ALBTargetGroupRequest{
		HTTPMethod:                      req.Method,
		Path:                            req.URL.Path,
		MultiValueHeaders:               lowerHeader(req.Header),
		MultiValueQueryStringParameters: query,
		Body:                            body,
		IsBase64Encoded:                 isBase64,
	}
	e.RequestContext.ELB.TargetGroupArn = "arn:aws:elasticloadbalancing:" + localRegion + ":" + localAccountID +
		":targetgroup/local/0000000000000000"
	if host := req.Host; host != "" {
		e.MultiValueHeaders["host"] = []string{host}
	}
	return e
}

func meshEvent(req *http.Request, body string, isBase64 bool, now time.Time) api.MeshRequest {
	headers := lowerHeader(req.Header)
	if req.Host != "" {
		headers["host"] = []string{req.Host}
	}

	return api.MeshRequest{
		Version:               "2.0",
		Method:                req.Method,
		Path:                  req.URL.Path,
		Headers:               headers,
		QueryStringParameters: req.URL.Query(),
		Body:                  body,
		IsBase64Encoded:       isBase64,
		RequestContext: api.MeshRequestContext{
			ServiceNetworkARN: "arn:aws:vpc-lattice:" + localRegion + ":" + localAccountID + ":servicenetwork/sn-local",
			ServiceARN:        "arn:aws:vpc-lattice:" + localRegion + ":" + localAccountID + ":service/svc-local",
			TargetGroupARN:    "arn:aws:vpc-lattice:" + localRegion + ":" + localAccountID + ":targetgroup/tg-local",
			Region:            localRegion,
			TimeEpoch:         strconv.FormatInt(now.UnixMicro(), 10),
		},
	}
}

func readBody(req *http.Request) (string, bool, error) {
	if req.Body == nil {
		return "", false, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read request body: %w", err)
	}
	if utf8.Valid(data) {
		return string(data), false, nil
	}
	return base64.StdEncoding.EncodeToString(data), true, nil
}

func lowerHeader(header http.Header) map[string][]string {
	out := make(map[string][]string, len(header))
	for name, values := range header {
		key := strings.ToLower(name)
		out[key] = append(out[key], values...)
	}
	return out
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
