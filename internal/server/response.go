package server

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/pkg/api"
)

// WriteResponse writes a gateway response as a plain HTTP response.
// Multi-value headers win over single-value ones; HTTP API cookies become Set-Cookie headers.
func WriteResponse(w http.ResponseWriter, resp *api.ResponseEvent) error {
	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			writeGatewayError(w, http.StatusBadGateway, "Internal server error")
			return fmt.Errorf("invalid base64 response body: %w", err)
		}
		body = decoded
	}

	header := w.Header()
	for name, value := range resp.Headers {
		if _, ok := resp.MultiValueHeaders[name]; !ok {
			header.Set(name, value)
		}
	}
	for name, values := range resp.MultiValueHeaders {
		header.Del(name)
		for _, v := range values {
			header.Add(name, v)
		}
	}
	for _, c := range resp.Cookies {
		header.Add(constants.SetCookieHeader, c)
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	return nil
}
