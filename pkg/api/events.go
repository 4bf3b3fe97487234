package api

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// FromAPIGatewayProxy converts a REST API (payload v1) proxy event.
func FromAPIGatewayProxy(e events.APIGatewayProxyRequest) *RequestEvent {
	NormalizeAPIGatewayProxy(&e)

	rc := e.RequestContext
	ev := &RequestEvent{
		Kind:              RestV1,
		Method:            e.HTTPMethod,
		Path:              e.Path,
		Header:            headerFromMulti(e.MultiValueHeaders),
		Query:             url.Values(cloneMulti(e.MultiValueQueryStringParameters)),
		PathParameters:    e.PathParameters,
		StageVariables:    e.StageVariables,
		Body:              e.Body,
		IsBase64Encoded:   e.IsBase64Encoded,
		MultiValueHeaders: true,
		Context: RequestContext{
			RequestID:    rc.RequestID,
			AccountID:    rc.AccountID,
			APIID:        rc.APIID,
			Stage:        rc.Stage,
			DomainName:   rc.DomainName,
			Protocol:     rc.Protocol,
			SourceIP:     rc.Identity.SourceIP,
			UserAgent:    rc.Identity.UserAgent,
			ResourcePath: rc.ResourcePath,
			TimeEpoch:    rc.RequestTimeEpoch,
			Authorizer:   rc.Authorizer,
			Identity: Identity{
				UserARN:                   rc.Identity.UserArn,
				User:                      rc.Identity.User,
				Caller:                    rc.Identity.Caller,
				AccessKey:                 rc.Identity.AccessKey,
				AccountID:                 rc.Identity.AccountID,
				CognitoIdentityID:         rc.Identity.CognitoIdentityID,
				CognitoIdentityPoolID:     rc.Identity.CognitoIdentityPoolID,
				CognitoAuthenticationType: rc.Identity.CognitoAuthenticationType,
			},
		},
		Raw: e,
	}

	if cert := rc.Identity.ClientCert; cert != nil && cert.ClientCertPem != "" {
		ev.Context.ClientCert = &ClientCert{
			PEM:          cert.ClientCertPem,
			SubjectDN:    cert.SubjectDN,
			IssuerDN:     cert.IssuerDN,
			SerialNumber: cert.SerialNumber,
			NotBefore:    cert.Validity.NotBefore,
			NotAfter:     cert.Validity.NotAfter,
		}
	}

	return ev
}

// FromHTTPAPI converts an HTTP API (payload v2) event.
// Headers arrive comma-joined and the query string is kept verbatim.
func FromHTTPAPI(e events.APIGatewayV2HTTPRequest) *RequestEvent {
	rc := e.RequestContext

	path := e.RawPath
	if path == "" {
		path = rc.HTTP.Path
	}

	header := make(http.Header, len(e.Headers))
	for k, v := range e.Headers {
		header.Set(k, v)
	}

	query, err := url.ParseQuery(e.RawQueryString)
	if err != nil || (e.RawQueryString == "" && len(e.QueryStringParameters) > 0) {
		query = make(url.Values, len(e.QueryStringParameters))
		for k, v := range e.QueryStringParameters {
			query[k] = strings.Split(v, ",")
		}
	}

	ev := &RequestEvent{
		Kind:            HTTPV2,
		Method:          rc.HTTP.Method,
		Path:            path,
		RawQuery:        e.RawQueryString,
		Header:          header,
		Query:           query,
		PathParameters:  e.PathParameters,
		StageVariables:  e.StageVariables,
		Cookies:         e.Cookies,
		Body:            e.Body,
		IsBase64Encoded: e.IsBase64Encoded,
		Context: RequestContext{
			RequestID:  rc.RequestID,
			AccountID:  rc.AccountID,
			APIID:      rc.APIID,
			Stage:      rc.Stage,
			DomainName: rc.DomainName,
			Protocol:   rc.HTTP.Protocol,
			SourceIP:   rc.HTTP.SourceIP,
			UserAgent:  rc.HTTP.UserAgent,
			TimeEpoch:  rc.TimeEpoch,
		},
		Raw: e,
	}

	if auth := rc.Authorizer; auth != nil {
		ev.Context.Authorizer = auth.Lambda
		if auth.JWT != nil {
			ev.Context.JWT = &JWTAuthorizer{Claims: auth.JWT.Claims, Scopes: auth.JWT.Scopes}
		}
		if iam := auth.IAM; iam != nil {
			ev.Context.Identity = Identity{
				UserARN:               iam.UserARN,
				User:                  iam.UserID,
				Caller:                iam.CallerID,
				AccessKey:             iam.AccessKey,
				AccountID:             iam.AccountID,
				CognitoIdentityID:     iam.CognitoIdentity.IdentityID,
				CognitoIdentityPoolID: iam.CognitoIdentity.IdentityPoolID,
			}
		}
	}

	if cert := rc.Authentication.ClientCert; cert.ClientCertPem != "" {
		ev.Context.ClientCert = &ClientCert{
			PEM:          cert.ClientCertPem,
			SubjectDN:    cert.SubjectDN,
			IssuerDN:     cert.IssuerDN,
			SerialNumber: cert.SerialNumber,
			NotBefore:    cert.Validity.NotBefore,
			NotAfter:     cert.Validity.NotAfter,
		}
	}

	return ev
}

// FromALB converts an ALB target group event.
// Query values arrive percent-encoded, so RawQuery joins them without re-encoding.
func FromALB(e events.ALBTargetGroupRequest) *RequestEvent {
	multiHeaders := len(e.MultiValueHeaders) > 0
	NormalizeALB(&e)

	rawQuery := joinEncodedQuery(e.MultiValueQueryStringParameters)
	query, _ := url.ParseQuery(rawQuery)

	header := headerFromMulti(e.MultiValueHeaders)

	return &RequestEvent{
		Kind:              ALB,
		Method:            e.HTTPMethod,
		Path:              e.Path,
		RawQuery:          rawQuery,
		Header:            header,
		Query:             query,
		Body:              e.Body,
		IsBase64Encoded:   e.IsBase64Encoded,
		MultiValueHeaders: multiHeaders,
		Context: RequestContext{
			DomainName:     header.Get("Host"),
			SourceIP:       firstForwardedFor(header.Get(forwardedForHeader)),
			UserAgent:      header.Get("User-Agent"),
			TargetGroupARN: e.RequestContext.ELB.TargetGroupArn,
		},
		Raw: e,
	}
}

// FromMesh converts a VPC Lattice event.
func FromMesh(e MeshRequest) *RequestEvent {
	rc := e.RequestContext
	header := headerFromMulti(e.Headers)

	return &RequestEvent{
		Kind:            Mesh,
		Method:          e.Method,
		Path:            e.Path,
		Header:          header,
		Query:           url.Values(cloneMulti(e.QueryStringParameters)),
		Body:            e.Body,
		IsBase64Encoded: e.IsBase64Encoded,
		Context: RequestContext{
			DomainName:        header.Get("Host"),
			SourceIP:          firstForwardedFor(header.Get(forwardedForHeader)),
			UserAgent:         header.Get("User-Agent"),
			Region:            rc.Region,
			TimeEpoch:         rc.timeEpoch(),
			TargetGroupARN:    rc.TargetGroupARN,
			ServiceNetworkARN: rc.ServiceNetworkARN,
			ServiceARN:        rc.ServiceARN,
			MeshIdentity: &MeshIdentity{
				Type:           rc.Identity.Type,
				Principal:      rc.Identity.Principal,
				PrincipalOrgID: rc.Identity.PrincipalOrgID,
				SessionName:    rc.Identity.SessionName,
				SourceVPCARN:   rc.Identity.SourceVPCARN,
				X509SubjectCN:  rc.Identity.X509SubjectCN,
			},
		},
		Raw: e,
	}
}

// Helper functions

func headerFromMulti(multi map[string][]string) http.Header {
	header := make(http.Header, len(multi))
	for k, values := range multi {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	return header
}

func cloneMulti(multi map[string][]string) map[string][]string {
	out := make(map[string][]string, len(multi))
	for k, values := range multi {
		out[k] = append([]string(nil), values...)
	}
	return out
}

// joinEncodedQuery builds a query string from already-encoded keys and values, sorted by key.
func joinEncodedQuery(multi map[string][]string) string {
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range multi[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

const forwardedForHeader = "X-Forwarded-For"

func firstForwardedFor(value string) string {
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}
