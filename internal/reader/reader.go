// Package reader converts gateway events into synthetic *http.Request values.
package reader

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/runvoy/lambdahost/internal/config"
	"github.com/runvoy/lambdahost/internal/constants"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Reader builds synthetic requests. It holds no per-request state.
type Reader struct {
	basePath      string
	stripBasePath bool
	stripStage    bool
}

// New creates a Reader using the path-mapping options of cfg.
func New(cfg *config.Config) *Reader {
	return &Reader{
		basePath:      cfg.BasePath,
		stripBasePath: cfg.StripBasePath,
		stripStage:    cfg.StripStage,
	}
}

// Read converts ev into a request bound to ctx. The request carries a fresh attribute
// bag populated with the gateway metadata. Read has no side effects and can be repeated.
func (rd *Reader) Read(ctx context.Context, ev *api.RequestEvent) (*http.Request, error) {
	if ev == nil {
		return nil, apperrors.ErrInvalidRequestEvent("request event is nil", nil)
	}
	if ev.Method == "" {
		return nil, apperrors.ErrInvalidRequestEvent("request event has no HTTP method", nil)
	}
	if ev.Path == "" {
		return nil, apperrors.ErrInvalidRequestEvent("request event has no path", nil)
	}

	body, err := decodeBody(ev)
	if err != nil {
		return nil, err
	}

	contextPath, servletPath := rd.splitPath(ev)

	header := ev.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if len(ev.Cookies) > 0 {
		header.Set(constants.CookieHeader, strings.Join(ev.Cookies, "; "))
	}

	host := header.Get(constants.HostHeader)
	if host == "" {
		host = ev.Context.DomainName
	}
	if host == "" {
		host = constants.DefaultHost
	}

	cert := parseClientCert(ev.Context.ClientCert)
	secure := strings.EqualFold(header.Get(constants.ForwardedProtoHeader), constants.SchemeHTTPS) ||
		ev.Context.ClientCert != nil
	scheme := constants.SchemeHTTP
	if secure {
		scheme = constants.SchemeHTTPS
	}

	u := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     servletPath,
		RawQuery: rawQuery(ev),
	}
	if strings.Contains(servletPath, "%") {
		if unescaped, uerr := url.PathUnescape(servletPath); uerr == nil {
			u.Path = unescaped
			u.RawPath = servletPath
		}
	}

	attrs := requestAttributes(ctx, ev, contextPath)
	req, err := http.NewRequestWithContext(servlet.WithAttributes(ctx, attrs), ev.Method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.ErrInvalidRequestEvent(fmt.Sprintf("cannot build request for %s %s", ev.Method, ev.Path), err)
	}

	req.Header = header
	req.Host = host
	req.RequestURI = u.RequestURI()
	req.RemoteAddr = remoteAddr(ev.Context.SourceIP, header)
	if major, minor, ok := http.ParseHTTPVersion(ev.Context.Protocol); ok {
		req.Proto, req.ProtoMajor, req.ProtoMinor = ev.Context.Protocol, major, minor
	}

	if secure {
		req.TLS = &tls.ConnectionState{
			HandshakeComplete: true,
			ServerName:        strings.Split(host, ":")[0],
		}
		if cert != nil {
			req.TLS.PeerCertificates = []*x509.Certificate{cert}
		}
	}

	return req, nil
}

// splitPath separates the context path (stage and base path) from the path seen by the application.
func (rd *Reader) splitPath(ev *api.RequestEvent) (contextPath, servletPath string) {
	servletPath = ev.Path
	if !strings.HasPrefix(servletPath, "/") {
		servletPath = "/" + servletPath
	}

	if rd.stripStage && ev.Kind == api.RestV1 && ev.Context.Stage != "" {
		if rest, ok := cutSegmentPrefix(servletPath, "/"+ev.Context.Stage); ok {
			contextPath = "/" + ev.Context.Stage
			servletPath = rest
		}
	}

	if rd.stripBasePath && rd.basePath != "" {
		if rest, ok := cutSegmentPrefix(servletPath, rd.basePath); ok {
			contextPath += rd.basePath
			servletPath = rest
		}
	}

	return contextPath, servletPath
}

// cutSegmentPrefix removes prefix when it matches whole path segments.
func cutSegmentPrefix(path, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return path, false
	}
	switch {
	case rest == "":
		return "/", true
	case strings.HasPrefix(rest, "/"):
		return rest, true
	default:
		return path, false
	}
}

// rawQuery uses the gateway's own query string when it has one (HTTP API, ALB)
// and encodes the parsed parameters otherwise.
func rawQuery(ev *api.RequestEvent) string {
	if ev.RawQuery != "" {
		return ev.RawQuery
	}
	return ev.Query.Encode()
}

func decodeBody(ev *api.RequestEvent) ([]byte, error) {
	if !ev.IsBase64Encoded {
		return []byte(ev.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(ev.Body)
	if err != nil {
		return nil, apperrors.ErrInvalidRequestEvent("request body is not valid base64", err)
	}
	return body, nil
}

func parseClientCert(cert *api.ClientCert) *x509.Certificate {
	if cert == nil || cert.PEM == "" {
		return nil
	}
	block, _ := pem.Decode([]byte(cert.PEM))
	if block == nil {
		return nil
	}
	parsed, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil
	}
	return parsed
}

func remoteAddr(sourceIP string, header http.Header) string {
	if sourceIP == "" {
		sourceIP = "0.0.0.0"
	}
	port := header.Get(constants.ForwardedPortHeader)
	if port == "" {
		port = "0"
	}
	return net.JoinHostPort(sourceIP, port)
}

func requestAttributes(ctx context.Context, ev *api.RequestEvent, contextPath string) *servlet.Attributes {
	attrs := servlet.NewAttributes()
	attrs.Set(servlet.AttrRawEvent, ev.Raw)
	rc := ev.Context
	attrs.Set(servlet.AttrRequestContext, &rc)
	attrs.Set(servlet.AttrContextPath, contextPath)
	if ev.StageVariables != nil {
		attrs.Set(servlet.AttrStageVariables, ev.StageVariables)
	}
	if ev.PathParameters != nil {
		attrs.Set(servlet.AttrPathParameters, ev.PathParameters)
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		attrs.Set(servlet.AttrLambdaContext, lc)
	}
	return attrs
}
