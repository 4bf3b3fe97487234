// Package api defines the gateway event model shared by the lambdahost packages.
// Every supported gateway shape is converted into a RequestEvent before it reaches the
// request reader, and every response leaves as a ResponseEvent.
package api

import (
	"net/http"
	"net/url"
)

// EventKind identifies the gateway that produced an event.
type EventKind string

// Supported event kinds
const (
	RestV1 EventKind = "REST_V1"
	HTTPV2 EventKind = "HTTP_V2"
	ALB    EventKind = "ALB"
	Mesh   EventKind = "MESH"
)

// String returns the kind name.
func (k EventKind) String() string {
	return string(k)
}

// RequestEvent is the gateway-independent view of one inbound request.
// Header and Query are already normalized to their multi-valued form.
type RequestEvent struct {
	Kind     EventKind
	Method   string
	Path     string
	RawQuery string

	Header http.Header
	Query  url.Values

	PathParameters map[string]string
	StageVariables map[string]string
	Cookies        []string

	Body            string
	IsBase64Encoded bool

	// MultiValueHeaders reports whether the source event carried multi-valued headers.
	// ALB responses mirror the request's header mode.
	MultiValueHeaders bool

	Context RequestContext

	// Raw is the original typed event (after normalization).
	Raw any
}

// RequestContext holds the request-context block of an event.
type RequestContext struct {
	RequestID    string
	AccountID    string
	APIID        string
	Stage        string
	DomainName   string
	Protocol     string
	SourceIP     string
	UserAgent    string
	ResourcePath string
	Region       string
	TimeEpoch    int64

	// Authorizer is the REST API authorizer output or the HTTP API lambda authorizer context.
	Authorizer map[string]any
	Identity   Identity
	JWT        *JWTAuthorizer
	ClientCert *ClientCert

	TargetGroupARN    string
	ServiceNetworkARN string
	ServiceARN        string
	MeshIdentity      *MeshIdentity
}

// Identity is the caller identity reported by API Gateway.
type Identity struct {
	UserARN                   string
	User                      string
	Caller                    string
	AccessKey                 string
	AccountID                 string
	CognitoIdentityID         string
	CognitoIdentityPoolID     string
	CognitoAuthenticationType string
}

// JWTAuthorizer holds the claims validated by an HTTP API JWT authorizer.
type JWTAuthorizer struct {
	Claims map[string]string
	Scopes []string
}

// ClientCert describes the mTLS client certificate presented to the gateway.
type ClientCert struct {
	PEM          string
	SubjectDN    string
	IssuerDN     string
	SerialNumber string
	NotBefore    string
	NotAfter     string
}

// MeshIdentity is the caller identity reported by VPC Lattice.
type MeshIdentity struct {
	Type           string
	Principal      string
	PrincipalOrgID string
	SessionName    string
	SourceVPCARN   string
	X509SubjectCN  string
}

// ResponseEvent is the gateway-independent response.
// Only the fields relevant to the originating gateway are populated.
type ResponseEvent struct {
	StatusCode        int                 `json:"statusCode"`
	StatusDescription string              `json:"statusDescription,omitempty"`
	Headers           map[string]string   `json:"headers,omitempty"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	Body              string              `json:"body"`
	IsBase64Encoded   bool                `json:"isBase64Encoded"`
	Cookies           []string            `json:"cookies,omitempty"`
}

// ErrorResponse is the body written by the exception mapper.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
