// Package writer serializes a finalized synthetic response into the gateway response shape.
package writer

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/pkg/api"
)

// Writer converts responses. It is safe for concurrent use.
type Writer struct {
	binaryTypes []string
}

// New creates a Writer for the given binary media type patterns ("image/png", "image/*", "*/*").
func New(binaryMediaTypes []string) *Writer {
	types := make([]string, 0, len(binaryMediaTypes))
	for _, t := range binaryMediaTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			types = append(types, t)
		}
	}
	return &Writer{binaryTypes: types}
}

// Write builds the response event for the gateway that produced ev.
// The response must have been finalized.
func (w *Writer) Write(resp *servlet.Response, ev *api.RequestEvent) (*api.ResponseEvent, error) {
	if !resp.Committed() {
		return nil, fmt.Errorf("%w: response is not finalized", servlet.ErrIllegalState)
	}
	return w.build(resp.Status(), resp.Headers(), resp.Body(), ev), nil
}

// WriteBody builds a response event from parts, for responses that never went through a servlet response.
func (w *Writer) WriteBody(status int, header http.Header, body []byte, ev *api.RequestEvent) *api.ResponseEvent {
	return w.build(status, header, body, ev)
}

func (w *Writer) build(status int, header http.Header, body []byte, ev *api.RequestEvent) *api.ResponseEvent {
	out := &api.ResponseEvent{StatusCode: status}

	if w.IsBinary(header.Get(constants.ContentTypeHeader), body) {
		out.Body = base64.StdEncoding.EncodeToString(body)
		out.IsBase64Encoded = true
	} else {
		out.Body = string(body)
	}

	switch ev.Kind {
	case api.HTTPV2:
		out.Cookies = header.Values(constants.SetCookieHeader)
		header = header.Clone()
		header.Del(constants.SetCookieHeader)
		out.Headers = joinedHeaders(header)
	case api.ALB:
		out.StatusDescription = api.StatusDescription(status)
		if ev.MultiValueHeaders {
			out.MultiValueHeaders = multiHeaders(header)
		} else {
			out.Headers = lastValueHeaders(header)
		}
	case api.Mesh:
		out.StatusDescription = api.StatusDescription(status)
		out.Headers = joinedHeaders(header)
	default:
		out.MultiValueHeaders = multiHeaders(header)
	}

	return out
}

// IsBinary reports whether a body must be base64 encoded: its content type matches a
// configured binary media type or the bytes are not valid UTF-8.
func (w *Writer) IsBinary(contentType string, body []byte) bool {
	if !utf8.Valid(body) {
		return true
	}
	if contentType == "" || len(w.binaryTypes) == 0 {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	for _, pattern := range w.binaryTypes {
		if matchMediaType(pattern, mediaType) {
			return true
		}
	}
	return false
}

func matchMediaType(pattern, mediaType string) bool {
	if pattern == "*/*" || pattern == mediaType {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		major, _, _ := strings.Cut(mediaType, "/")
		return major == prefix
	}
	return false
}

func multiHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string][]string, len(header))
	for k, values := range header {
		if len(values) > 0 {
			out[k] = append([]string(nil), values...)
		}
	}
	return out
}

func joinedHeaders(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string]string, len(header))
	for k, values := range header {
		if len(values) > 0 {
			out[k] = strings.Join(values, ",")
		}
	}
	return out
}

func lastValueHeaders(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string]string, len(header))
	for k, values := range header {
		if len(values) > 0 {
			out[k] = values[len(values)-1]
		}
	}
	return out
}

// SortedHeaderNames returns the header names of a response event in sorted order.
func SortedHeaderNames(resp *api.ResponseEvent) []string {
	seen := make(map[string]struct{}, len(resp.Headers)+len(resp.MultiValueHeaders))
	for k := range resp.Headers {
		seen[k] = struct{}{}
	}
	for k := range resp.MultiValueHeaders {
		seen[k] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
