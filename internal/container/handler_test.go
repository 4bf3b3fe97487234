package container

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runvoy/lambdahost/internal/config"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/logger"
	"github.com/runvoy/lambdahost/internal/security"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/internal/testutil"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0xff}

type testFramework struct {
	inits   atomic.Int32
	served  atomic.Int32
	initErr error
	block   chan struct{}
	bootCtx context.Context
}

func (f *testFramework) Name() string {
	return "test"
}

func (f *testFramework) Initialize(ctx context.Context, _ *servlet.Context) (http.Handler, error) {
	f.inits.Add(1)
	f.bootCtx = ctx
	if f.block != nil {
		<-f.block
	}
	if f.initErr != nil {
		return nil, f.initErr
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.served.Add(1)
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/panic", func(_ http.ResponseWriter, _ *http.Request) {
		panic(errUnchecked)
	})
	r.Method(http.MethodGet, "/checked", servlet.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) error {
		return errChecked
	}))
	r.Get("/async", func(w http.ResponseWriter, r *http.Request) {
		ac, err := servlet.StartAsync(r)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		go func() {
			time.Sleep(10 * time.Millisecond)
			ac.Response().WriteHeader(http.StatusAccepted)
			_, _ = ac.Response().Write([]byte("done later"))
			_ = ac.Complete()
		}()
	})
	r.Get("/hang", func(w http.ResponseWriter, r *http.Request) {
		if _, err := servlet.StartAsync(r); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	r.Get("/binary", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	r.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		_, _ = w.Write(buf.Bytes())
	})
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		sc := security.FromRequest(r)
		if !sc.Authenticated() {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(sc.Principal.Name))
	})
	r.Get("/request-id", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(logger.GetRequestID(r.Context())))
	})
	r.Get("/large", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("more than the limit"))
	})
	return r, nil
}

var (
	errUnchecked = errors.New("unchecked failure")
	errChecked   = errors.New("checked failure")
)

func newTestHandler(t *testing.T, cfg *config.Config, fw Framework) *Handler {
	t.Helper()
	if cfg == nil {
		cfg = testutil.TestConfig()
	}
	h, err := New(cfg, fw, WithLogger(testutil.SilentLogger()), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	return h
}

func get(t *testing.T, h *Handler, kind api.EventKind, path string) *api.ResponseEvent {
	t.Helper()
	resp, err := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(kind).WithPath(path).Build())
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestNew_Validation(t *testing.T) {
	_, err := New(testutil.TestConfig(), nil)
	require.Error(t, err)

	cfg := testutil.TestConfig()
	cfg.AsyncTimeout = 0
	_, err = New(cfg, &testFramework{})
	require.Error(t, err)
}

func TestHandleRequest_Get(t *testing.T) {
	for _, kind := range []api.EventKind{api.RestV1, api.HTTPV2, api.ALB, api.Mesh} {
		t.Run(kind.String(), func(t *testing.T) {
			h := newTestHandler(t, nil, &testFramework{})

			resp := get(t, h, kind, "/test")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "OK", resp.Body)
			assert.False(t, resp.IsBase64Encoded)
		})
	}
}

func TestHandleRequest_NotFound(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	resp := get(t, h, api.RestV1, "/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleRequest_RejectsInvalidPath(t *testing.T) {
	fw := &testFramework{}
	h := newTestHandler(t, nil, fw)

	resp := get(t, h, api.RestV1, "/../..")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(0), fw.served.Load(), "framework must not be dispatched")
	assert.InDelta(t, 1, promtestutil.ToFloat64(h.Metrics().RejectedPaths), 0)
}

func TestHandleRequest_PathValidationDisabled(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.ValidatePaths = false
	fw := &testFramework{}
	h := newTestHandler(t, cfg, fw)

	get(t, h, api.RestV1, "/../..")
	assert.Equal(t, int32(1), fw.served.Load())
	assert.Empty(t, h.ServletContext().Filters())
}

func TestHandleRequest_MapperDisabled(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.DisableExceptionMapper = true
	h := newTestHandler(t, cfg, &testFramework{})

	t.Run("panic propagates unwrapped", func(t *testing.T) {
		ev := testutil.NewEventBuilder(api.RestV1).WithPath("/panic").Build()
		assert.PanicsWithValue(t, errUnchecked, func() {
			_, _ = h.HandleRequest(testutil.TestContext(), ev)
		})
	})

	t.Run("checked error is wrapped with its cause", func(t *testing.T) {
		ev := testutil.NewEventBuilder(api.RestV1).WithPath("/checked").Build()

		resp, err := h.HandleRequest(testutil.TestContext(), ev)
		assert.Nil(t, resp)
		testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeInvocationFailed)
		assert.Same(t, errChecked, errors.Unwrap(err))
	})
}

func TestHandleRequest_MapperEnabled(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	for _, path := range []string{"/panic", "/checked"} {
		t.Run(path, func(t *testing.T) {
			resp := get(t, h, api.HTTPV2, path)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])

			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
			assert.Equal(t, "Internal Server Error", body.Message)
			assert.NotContains(t, resp.Body, "failure")
		})
	}
}

func TestHandleRequest_Async(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		h := newTestHandler(t, nil, &testFramework{})

		resp := get(t, h, api.RestV1, "/async")
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "done later", resp.Body)
	})

	t.Run("times out", func(t *testing.T) {
		cfg := testutil.TestConfig()
		cfg.AsyncTimeout = 30 * time.Millisecond
		h := newTestHandler(t, cfg, &testFramework{})

		resp := get(t, h, api.RestV1, "/hang")
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		assert.Contains(t, resp.Body, apperrors.ErrCodeRequestTimeout)
		assert.InDelta(t, 1, promtestutil.ToFloat64(h.Metrics().AsyncTimeouts), 0)
	})
}

func TestHandleRequest_BinaryRoundTrip(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.BinaryMediaTypes = []string{"image/png"}
	h := newTestHandler(t, cfg, &testFramework{})

	t.Run("binary response", func(t *testing.T) {
		resp := get(t, h, api.ALB, "/binary")
		require.True(t, resp.IsBase64Encoded)

		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, decoded)
	})

	t.Run("binary request body echoed", func(t *testing.T) {
		ev := testutil.NewEventBuilder(api.RestV1).
			WithMethod(http.MethodPost).
			WithPath("/echo").
			WithHeader("Content-Type", "image/png").
			WithBinaryBody(pngBytes).
			Build()

		resp, err := h.HandleRequest(testutil.TestContext(), ev)
		require.NoError(t, err)
		require.True(t, resp.IsBase64Encoded)

		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, decoded)
	})
}

func TestHandleRequest_SecurityContext(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	ev := testutil.NewEventBuilder(api.RestV1).
		WithPath("/whoami").
		WithAuthorizer(map[string]any{"principalId": "custom-user"}).
		Build()
	resp, err := h.HandleRequest(testutil.TestContext(), ev)
	require.NoError(t, err)
	assert.Equal(t, "custom-user", resp.Body)

	assert.Equal(t, "anonymous", get(t, h, api.RestV1, "/whoami").Body)
}

func TestHandleRequest_MalformedClaims(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	ev := testutil.NewEventBuilder(api.RestV1).
		WithPath("/whoami").
		WithAuthorizer(map[string]any{"claims": map[string]any{"email": "no-sub@example.com"}}).
		Build()
	resp, err := h.HandleRequest(testutil.TestContext(), ev)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleRequest_RequestID(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	t.Run("lambda request id wins", func(t *testing.T) {
		ctx := lambdacontext.NewContext(testutil.TestContext(), &lambdacontext.LambdaContext{AwsRequestID: "aws-request-id"})
		ev := testutil.NewEventBuilder(api.RestV1).WithPath("/request-id").Build()

		resp, err := h.HandleRequest(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, "aws-request-id", resp.Body)
	})

	t.Run("gateway request id", func(t *testing.T) {
		ev := testutil.NewEventBuilder(api.RestV1).WithPath("/request-id").WithRequestID("gw-id").Build()

		resp, err := h.HandleRequest(testutil.TestContext(), ev)
		require.NoError(t, err)
		assert.Equal(t, "gw-id", resp.Body)
	})

	t.Run("generated request id", func(t *testing.T) {
		ev := testutil.NewEventBuilder(api.RestV1).WithPath("/request-id").WithRequestID("").Build()

		resp, err := h.HandleRequest(testutil.TestContext(), ev)
		require.NoError(t, err)
		assert.Len(t, resp.Body, 36)
	})
}

func TestHandleRequest_ResponseTooLarge(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.MaxResponseBytes = 4
	h := newTestHandler(t, cfg, &testFramework{})

	resp := get(t, h, api.RestV1, "/large")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, resp.Body, apperrors.ErrCodeResponseTooLarge)
}

func TestHandleRequest_InvalidEvent(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	resp, err := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(api.RestV1).WithMethod("").Build())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInitialize_ExactlyOnce(t *testing.T) {
	fw := &testFramework{}
	h := newTestHandler(t, nil, fw)

	var wg sync.WaitGroup
	statuses := make([]int, 10)
	for i := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(api.HTTPV2).WithPath("/test").Build())
			if err == nil {
				statuses[i] = resp.StatusCode
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fw.inits.Load())
	for _, status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.InDelta(t, 1, promtestutil.ToFloat64(h.Metrics().ColdStarts), 0)
	assert.True(t, h.ServletContext().Frozen())
}

func TestInitialize_FailureIsFatal(t *testing.T) {
	fw := &testFramework{initErr: errors.New("cannot connect")}
	h := newTestHandler(t, nil, fw)

	err := h.Initialize(testutil.TestContext())
	testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeContainerInitialization)

	for range 2 {
		resp, reqErr := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(api.RestV1).WithPath("/test").Build())
		assert.Nil(t, resp)
		testutil.AssertAppErrorCode(t, reqErr, apperrors.ErrCodeContainerInitialization)
	}
	assert.Equal(t, int32(1), fw.inits.Load())
}

func TestInitialize_BootContextOutlivesInitialization(t *testing.T) {
	fw := &testFramework{}
	h := newTestHandler(t, nil, fw)

	require.NoError(t, h.Initialize(context.Background()))
	require.NotNil(t, fw.bootCtx)
	assert.NoError(t, fw.bootCtx.Err())

	resp, err := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(api.RestV1).WithPath("/test").Build())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, fw.bootCtx.Err())
}

func TestInitialize_Async(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.AsyncInit = true
	cfg.AsyncInitTimeout = 20 * time.Millisecond
	fw := &testFramework{block: make(chan struct{})}
	h := newTestHandler(t, cfg, fw)

	started := time.Now()
	require.NoError(t, h.Initialize(testutil.TestContext()))
	assert.Less(t, time.Since(started), time.Second)

	done := make(chan *api.ResponseEvent, 1)
	go func() {
		resp, err := h.HandleRequest(testutil.TestContext(), testutil.NewEventBuilder(api.RestV1).WithPath("/test").Build())
		if err != nil {
			done <- nil
			return
		}
		done <- resp
	}()

	select {
	case <-done:
		t.Fatal("request served before initialization finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(fw.block)
	resp := <-done
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTypedEntryPoints(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})
	ctx := testutil.TestContext()

	t.Run("rest api", func(t *testing.T) {
		req := testutil.NewEventBuilder(api.RestV1).WithPath("/test").Typed().(events.APIGatewayProxyRequest)
		resp, err := h.HandleAPIGatewayProxy(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "OK", resp.Body)
	})

	t.Run("http api", func(t *testing.T) {
		req := testutil.NewEventBuilder(api.HTTPV2).WithPath("/test").Typed().(events.APIGatewayV2HTTPRequest)
		resp, err := h.HandleHTTPAPI(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "OK", resp.Body)
	})

	t.Run("alb", func(t *testing.T) {
		req := testutil.NewEventBuilder(api.ALB).WithPath("/test").Typed().(events.ALBTargetGroupRequest)
		resp, err := h.HandleALB(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "200 OK", resp.StatusDescription)
	})

	t.Run("mesh", func(t *testing.T) {
		req := testutil.NewEventBuilder(api.Mesh).WithPath("/test").Typed().(api.MeshRequest)
		resp, err := h.HandleMesh(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "200 OK", resp.StatusDescription)
		assert.Equal(t, "OK", resp.Body)
	})
}

func TestInvoke(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	t.Run("http api shape", func(t *testing.T) {
		out, err := h.Invoke(testutil.TestContext(), testutil.NewEventBuilder(api.HTTPV2).WithPath("/test").JSON())
		require.NoError(t, err)

		var resp events.APIGatewayV2HTTPResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", resp.Body)
	})

	t.Run("alb shape", func(t *testing.T) {
		out, err := h.Invoke(testutil.TestContext(), testutil.NewEventBuilder(api.ALB).WithPath("/test").JSON())
		require.NoError(t, err)
		assert.Contains(t, string(out), `"statusDescription":"200 OK"`)
	})

	t.Run("unrecognized event", func(t *testing.T) {
		out, err := h.Invoke(testutil.TestContext(), []byte(`{"hello":"world"}`))
		require.NoError(t, err)

		var resp events.APIGatewayProxyResponse
		require.NoError(t, json.Unmarshal(out, &resp))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, resp.Body, apperrors.ErrCodeInvalidRequestEvent)
	})

	t.Run("unrecognized event with mapper disabled", func(t *testing.T) {
		cfg := testutil.TestConfig()
		cfg.DisableExceptionMapper = true
		strict := newTestHandler(t, cfg, &testFramework{})

		out, err := strict.Invoke(testutil.TestContext(), []byte(`[]`))
		assert.Nil(t, out)
		testutil.AssertAppErrorCode(t, err, apperrors.ErrCodeInvalidRequestEvent)
	})
}

func TestProxy(t *testing.T) {
	h := newTestHandler(t, nil, &testFramework{})

	var out bytes.Buffer
	err := h.Proxy(testutil.TestContext(), bytes.NewReader(testutil.NewEventBuilder(api.RestV1).WithPath("/test").JSON()), &out)
	require.NoError(t, err)

	var resp events.APIGatewayProxyResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Body)
}

func ExampleHandler_Invoke() {
	h, _ := New(config.Default(), &testFramework{}, WithLogger(testutil.SilentLogger()))

	out, _ := h.Invoke(context.Background(), testutil.NewEventBuilder(api.RestV1).WithPath("/test").JSON())

	var resp events.APIGatewayProxyResponse
	_ = json.Unmarshal(out, &resp)
	fmt.Println(resp.StatusCode, resp.Body)
	// Output: 200 OK
}
