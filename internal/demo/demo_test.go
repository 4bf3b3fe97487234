package demo

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/runvoy/lambdahost/internal/container"
	"github.com/runvoy/lambdahost/internal/frameworks"
	"github.com/runvoy/lambdahost/internal/testutil"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, fw *frameworks.Framework) *container.Handler {
	t.Helper()
	cfg := testutil.TestConfig()
	cfg.BinaryMediaTypes = []string{"image/*"}
	h, err := container.New(cfg, fw, container.WithLogger(testutil.SilentLogger()), container.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	return h
}

func do(t *testing.T, h *container.Handler, ev *api.RequestEvent) *api.ResponseEvent {
	t.Helper()
	resp, err := h.HandleRequest(testutil.TestContext(), ev)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestByName(t *testing.T) {
	for _, name := range []string{frameworks.NameChi, frameworks.NameGin, frameworks.NameFiber} {
		fw := ByName(name)
		require.NotNil(t, fw)
		assert.Equal(t, name, fw.Name())
	}
	assert.Nil(t, ByName("spring"))
}

func TestDemo_CommonRoutes(t *testing.T) {
	for _, fw := range []*frameworks.Framework{Chi(), Gin(), Fiber()} {
		t.Run(fw.Name(), func(t *testing.T) {
			h := newHandler(t, fw)

			resp := do(t, h, testutil.NewEventBuilder(api.HTTPV2).WithPath("/test").Build())
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "OK", resp.Body)

			resp = do(t, h, testutil.NewEventBuilder(api.HTTPV2).WithPath("/binary").Build())
			require.True(t, resp.IsBase64Encoded)
			assert.Equal(t, "image/png", resp.Headers["Content-Type"])
			decoded, err := base64.StdEncoding.DecodeString(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, []byte("\x89PNG"), decoded[:4])

			resp = do(t, h, testutil.NewEventBuilder(api.HTTPV2).
				WithMethod(http.MethodPost).
				WithPath("/echo").
				WithHeader("Content-Type", "text/plain").
				WithBody("ping").
				Build())
			assert.Equal(t, "ping", resp.Body)
			assert.Equal(t, http.MethodPost, resp.Headers["X-Echo-Method"])
		})
	}
}

func TestDemo_Async(t *testing.T) {
	for _, fw := range []*frameworks.Framework{Chi(), Gin()} {
		t.Run(fw.Name(), func(t *testing.T) {
			h := newHandler(t, fw)

			resp := do(t, h, testutil.NewEventBuilder(api.RestV1).WithPath("/async").WithQuery("delay", "5ms").Build())
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"async":true,"delay":"5ms"}`, resp.Body)

			resp = do(t, h, testutil.NewEventBuilder(api.RestV1).WithPath("/async").WithQuery("delay", "forever").Build())
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestDemo_AsyncTimeout(t *testing.T) {
	h := newHandler(t, Chi())

	resp := do(t, h, testutil.NewEventBuilder(api.RestV1).WithPath("/async").WithQuery("delay", "10s").Build())
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestDemo_WhoAmI(t *testing.T) {
	h := newHandler(t, Chi())

	ev := testutil.NewEventBuilder(api.RestV1).
		WithPath("/whoami").
		WithHeader("X-Forwarded-Proto", "https").
		WithRequestID("req-1").
		WithAuthorizer(map[string]any{
			"claims": map[string]any{
				"sub":              "u-1",
				"cognito:username": "dana",
				"cognito:groups":   "admin",
			},
		}).
		Build()

	resp := do(t, h, ev)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var id Identity
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &id))
	assert.True(t, id.Authenticated)
	assert.Equal(t, "COGNITO_USER_POOLS", id.Scheme)
	assert.Equal(t, "dana", id.Principal)
	assert.Equal(t, []string{"admin"}, id.Groups)
	assert.True(t, id.Secure)
	assert.Equal(t, "req-1", id.RequestID)
}

func TestDemo_Static(t *testing.T) {
	for _, fw := range []*frameworks.Framework{Chi(), Gin()} {
		t.Run(fw.Name(), func(t *testing.T) {
			h := newHandler(t, fw)

			resp := do(t, h, testutil.NewEventBuilder(api.RestV1).WithPath("/static/index.html").Build())
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{"text/html; charset=utf-8"}, resp.MultiValueHeaders["Content-Type"])
			assert.Contains(t, resp.Body, "<h1>lambdahost</h1>")

			resp = do(t, h, testutil.NewEventBuilder(api.RestV1).WithPath("/static/missing.txt").Build())
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}
