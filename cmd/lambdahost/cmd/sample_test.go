package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected api.EventKind
	}{
		{"v1", api.RestV1},
		{"REST", api.RestV1},
		{"v2", api.HTTPV2},
		{"http", api.HTTPV2},
		{"alb", api.ALB},
		{"mesh", api.Mesh},
		{"lattice", api.Mesh},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := parseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kind)
		})
	}

	_, err := parseKind("sqs")
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	header, err := parseHeaders([]string{"content-type: text/plain", "X-Multi: a", "X-Multi:b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"text/plain"}, header["Content-Type"])
	assert.Equal(t, []string{"a", "b"}, header["X-Multi"])

	header, err = parseHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, header)

	_, err = parseHeaders([]string{"no-colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

// Every generated event must decode back to the kind it was generated for.
func TestSampleService_RoundTrip(t *testing.T) {
	for _, kind := range []api.EventKind{api.RestV1, api.HTTPV2, api.ALB, api.Mesh} {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			service := NewSampleService(&buf, fixedNow)

			err := service.Print(SampleRequest{
				Kind:    kind,
				Method:  "post",
				Path:    "/echo?x=1&x=2",
				Headers: []string{"Content-Type: text/plain", "Cookie: a=1; b=2"},
				Body:    "ping",
				Stage:   "prod",
			})
			require.NoError(t, err)

			ev, err := api.DecodeRequestEvent(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, kind, ev.Kind)
			assert.Equal(t, "POST", ev.Method)
			assert.Equal(t, "/echo", ev.Path)
			assert.Equal(t, []string{"1", "2"}, ev.Query["x"])
			assert.Equal(t, "text/plain", ev.Header.Get("Content-Type"))
			assert.Equal(t, "ping", ev.Body)
		})
	}
}

func TestSampleService_HTTPAPICookies(t *testing.T) {
	service := NewSampleService(nil, fixedNow)

	event, err := service.Build(SampleRequest{
		Kind:    api.HTTPV2,
		Method:  "GET",
		Path:    "/",
		Headers: []string{"Cookie: a=1; b=2"},
	})
	require.NoError(t, err)

	ev, err := api.DecodeRequestEvent(mustJSON(t, event))
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2"}, ev.Cookies)
	assert.NotEmpty(t, ev.Context.RequestID)
}

func TestSampleService_InvalidQuery(t *testing.T) {
	service := NewSampleService(nil, fixedNow)
	_, err := service.Build(SampleRequest{Kind: api.RestV1, Method: "GET", Path: "/x?%zz"})
	assert.Error(t, err)
}
