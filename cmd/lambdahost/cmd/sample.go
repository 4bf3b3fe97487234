package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sampleFlags struct {
	method  string
	path    string
	headers []string
	body    string
	stage   string
}

var sampleCmd = &cobra.Command{
	Use:   "sample <v1|v2|alb|mesh>",
	Short: "Print a sample gateway event",
	Long: `Print a sample gateway event as JSON. The output can be saved and passed to
"replay" or "invoke". Query parameters are taken from the path.`,
	Example: fmt.Sprintf(`  - %s sample v2 --path '/echo?x=1' --method POST --body ping > event.json
  - %s sample alb -H 'X-Forwarded-Proto: https'`, rootCmd.Use, rootCmd.Use),
	Args: cobra.ExactArgs(1),
	RunE: sampleRun,
}

func init() {
	sampleCmd.Flags().StringVarP(&sampleFlags.method, "method", "X", http.MethodGet, "HTTP method")
	sampleCmd.Flags().StringVar(&sampleFlags.path, "path", "/test", "Request path, optionally with a query string")
	sampleCmd.Flags().StringArrayVarP(&sampleFlags.headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	sampleCmd.Flags().StringVar(&sampleFlags.body, "body", "", "Request body")
	sampleCmd.Flags().StringVar(&sampleFlags.stage, "stage", "prod", "API Gateway stage (REST API only)")
	rootCmd.AddCommand(sampleCmd)
}

func sampleRun(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	service := NewSampleService(cmd.OutOrStdout(), time.Now)
	return service.Print(SampleRequest{
		Kind:    kind,
		Method:  sampleFlags.method,
		Path:    sampleFlags.path,
		Headers: sampleFlags.headers,
		Body:    sampleFlags.body,
		Stage:   sampleFlags.stage,
	})
}

// SampleRequest describes the event to generate.
type SampleRequest struct {
	Kind    api.EventKind
	Method  string
	Path    string
	Headers []string
	Body    string
	Stage   string
}

// SampleService builds sample gateway events.
type SampleService struct {
	out io.Writer
	now func() time.Time
}

// NewSampleService creates a new SampleService writing to out.
func NewSampleService(out io.Writer, now func() time.Time) *SampleService {
	return &SampleService{out: out, now: now}
}

// Print writes the sample event as indented JSON.
func (s *SampleService) Print(req SampleRequest) error {
	event, err := s.Build(req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err = enc.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// Build returns the typed event for req.
func (s *SampleService) Build(req SampleRequest) (any, error) {
	path, rawQuery, _ := strings.Cut(req.Path, "?")
	if path == "" {
		path = "/"
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid query string %q: %w", rawQuery, err)
	}
	header, err := parseHeaders(req.Headers)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(req.Method)
	requestID := uuid.New().String()
	now := s.now().UTC()

	switch req.Kind {
	case api.HTTPV2:
		return s.httpAPI(method, path, rawQuery, header, req.Body, requestID, now), nil
	case api.ALB:
		return events.ALBTargetGroupRequest{
			HTTPMethod:                      method,
			Path:                            path,
			MultiValueHeaders:               header,
			MultiValueQueryStringParameters: query,
			Body:                            req.Body,
			RequestContext: events.ALBTargetGroupRequestContext{
				ELB: events.ELBContext{
					TargetGroupArn: "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/sample/0123456789abcdef",
				},
			},
		}, nil
	case api.Mesh:
		return api.MeshRequest{
			Version:               "2.0",
			Method:                method,
			Path:                  path,
			Headers:               lowerKeys(header),
			QueryStringParameters: query,
			Body:                  req.Body,
			RequestContext: api.MeshRequestContext{
				ServiceNetworkARN: "arn:aws:vpc-lattice:us-east-1:123456789012:servicenetwork/sn-sample",
				ServiceARN:        "arn:aws:vpc-lattice:us-east-1:123456789012:service/svc-sample",
				TargetGroupARN:    "arn:aws:vpc-lattice:us-east-1:123456789012:targetgroup/tg-sample",
				Region:            "us-east-1",
				TimeEpoch:         strconv.FormatInt(now.UnixMicro(), 10),
			},
		}, nil
	default:
		return events.APIGatewayProxyRequest{
			Resource:                        "/{proxy+}",
			HTTPMethod:                      method,
			Path:                            path,
			MultiValueHeaders:               header,
			MultiValueQueryStringParameters: query,
			PathParameters:                  map[string]string{"proxy": strings.TrimPrefix(path, "/")},
			Body:                            req.Body,
			RequestContext: events.APIGatewayProxyRequestContext{
				AccountID:        "123456789012",
				RequestID:        requestID,
				Stage:            req.Stage,
				DomainName:       "sample.execute-api.us-east-1.amazonaws.com",
				Protocol:         "HTTP/1.1",
				HTTPMethod:       method,
				Path:             "/" + req.Stage + path,
				ResourcePath:     "/{proxy+}",
				RequestTimeEpoch: now.UnixMilli(),
				Identity: events.APIGatewayRequestIdentity{
					SourceIP:  "127.0.0.1",
					UserAgent: sampleUserAgent,
				},
			},
		}, nil
	}
}

func (s *SampleService) httpAPI(
	method, path, rawQuery string, header map[string][]string, body, requestID string, now time.Time,
) events.APIGatewayV2HTTPRequest {
	headers := make(map[string]string, len(header))
	var cookies []string
	for name, values := range lowerKeys(header) {
		if name == "cookie" {
			for _, v := range values {
				for _, c := range strings.Split(v, ";") {
					cookies = append(cookies, strings.TrimSpace(c))
				}
			}
			continue
		}
		headers[name] = strings.Join(values, ",")
	}

	return events.APIGatewayV2HTTPRequest{
		Version:        "2.0",
		RouteKey:       "$default",
		RawPath:        path,
		RawQueryString: rawQuery,
		Cookies:        cookies,
		Headers:        headers,
		Body:           body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:   "$default",
			AccountID:  "123456789012",
			Stage:      "$default",
			RequestID:  requestID,
			DomainName: "sample.execute-api.us-east-1.amazonaws.com",
			TimeEpoch:  now.UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    method,
				Path:      path,
				Protocol:  "HTTP/1.1",
				SourceIP:  "127.0.0.1",
				UserAgent: sampleUserAgent,
			},
		},
	}
}

const sampleUserAgent = constants.ProjectName + "-cli"

// parseKind maps a CLI event kind name to an EventKind.
func parseKind(name string) (api.EventKind, error) {
	switch strings.ToLower(name) {
	case "v1", "rest":
		return api.RestV1, nil
	case "v2", "http":
		return api.HTTPV2, nil
	case "alb":
		return api.ALB, nil
	case "mesh", "lattice":
		return api.Mesh, nil
	default:
		return "", fmt.Errorf("unknown event kind %q (use v1, v2, alb or mesh)", name)
	}
}

// parseHeaders parses "Name: value" pairs into a canonical multi-valued header map.
func parseHeaders(raw []string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	header := http.Header{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (use 'Name: value')", h)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}

func lowerKeys(header map[string][]string) map[string][]string {
	if header == nil {
		return nil
	}
	out := make(map[string][]string, len(header))
	for k, v := range header {
		key := strings.ToLower(k)
		out[key] = append(out[key], v...)
	}
	return out
}
