// Package container wires the request reader, security context, servlet container,
// response writer and exception handler around a hosted framework.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/runvoy/lambdahost/internal/config"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
	"github.com/runvoy/lambdahost/internal/exceptions"
	"github.com/runvoy/lambdahost/internal/logger"
	"github.com/runvoy/lambdahost/internal/metrics"
	"github.com/runvoy/lambdahost/internal/reader"
	"github.com/runvoy/lambdahost/internal/security"
	"github.com/runvoy/lambdahost/internal/servlet"
	"github.com/runvoy/lambdahost/internal/writer"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// pathValidatorFilter is the name of the filter installed when path validation is enabled.
const pathValidatorFilter = "pathValidator"

// Framework boots a hosted application. Initialize may register filters, servlets and
// resources on sc and returns the handler that becomes the primary servlet.
// A nil handler means the framework registered its own servlets.
type Framework interface {
	Name() string
	Initialize(ctx context.Context, sc *servlet.Context) (http.Handler, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the base logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// WithRegisterer registers the handler metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(h *Handler) {
		h.registerer = reg
	}
}

// Handler serves Lambda invocations for one hosted framework.
type Handler struct {
	cfg        *config.Config
	framework  Framework
	log        *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics.Metrics

	reader     *reader.Reader
	writer     *writer.Writer
	exceptions *exceptions.Handler
	servletCtx *servlet.Context

	initOnce  sync.Once
	initDone  chan struct{}
	initErr   error
	container *servlet.Container
}

// New creates a Handler. The framework is not started until Initialize or the first request.
func New(cfg *config.Config, framework Framework, opts ...Option) (*Handler, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if framework == nil {
		return nil, errors.New("framework is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	h := &Handler{
		cfg:        cfg,
		framework:  framework,
		log:        slog.Default(),
		reader:     reader.New(cfg),
		writer:     writer.New(cfg.BinaryMediaTypes),
		servletCtx: servlet.NewContext(),
		initDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.exceptions = exceptions.New(cfg, h.writer)

	m, err := metrics.New(h.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	h.metrics = m

	return h, nil
}

// ServletContext returns the context shared by every request of this handler.
func (h *Handler) ServletContext() *servlet.Context {
	return h.servletCtx
}

// Metrics returns the handler collectors.
func (h *Handler) Metrics() *metrics.Metrics {
	return h.metrics
}

// Initialize starts the framework exactly once. With async init enabled it returns
// after AsyncInitTimeout at the latest and the boot keeps going in the background;
// requests wait for it to finish. Errors are CONTAINER_INITIALIZATION AppErrors.
func (h *Handler) Initialize(ctx context.Context) error {
	h.initOnce.Do(func() {
		h.start(ctx)
	})

	if !h.cfg.AsyncInit {
		return h.wait(ctx)
	}

	timer := time.NewTimer(h.cfg.AsyncInitTimeout)
	defer timer.Stop()

	select {
	case <-h.initDone:
		return h.initErr
	case <-timer.C:
		h.log.Info("framework still initializing, continuing in the background", "context", map[string]any{
			"framework": h.framework.Name(),
			"timeout":   h.cfg.AsyncInitTimeout.String(),
		})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) start(ctx context.Context) {
	// An async boot outlives the invocation that triggered it.
	bootCtx := ctx
	if h.cfg.AsyncInit {
		bootCtx = context.WithoutCancel(ctx)
	}

	finish := func() {
		if err := h.boot(bootCtx); err != nil {
			h.initErr = apperrors.ErrContainerInitialization(
				fmt.Sprintf("failed to initialize framework %q", h.framework.Name()), err)
			h.log.Error("framework initialization failed", "error", h.initErr)
		}
		close(h.initDone)
	}

	if h.cfg.AsyncInit {
		go finish()
		return
	}
	finish()
}

func (h *Handler) boot(ctx context.Context) error {
	started := time.Now()
	h.metrics.ColdStart()

	if h.cfg.ValidatePaths {
		validator := reader.PathValidator(h.cfg.InvalidPathStatus, func(path string) {
			h.metrics.RejectedPath()
			h.log.Warn("rejected request path", "path", path)
		})
		if err := h.servletCtx.AddFilter(pathValidatorFilter, validator); err != nil {
			return err
		}
	}

	handler, err := h.framework.Initialize(ctx, h.servletCtx)
	if err != nil {
		return err
	}
	if handler != nil {
		if err = h.servletCtx.AddServlet(h.framework.Name(), handler); err != nil {
			return err
		}
	}

	h.servletCtx.Freeze()
	chain, err := h.servletCtx.Handler()
	if err != nil {
		return err
	}
	h.container = servlet.NewContainer(chain, h.cfg.AsyncTimeout)

	h.log.Debug("framework initialized", "context", map[string]any{
		"framework": h.framework.Name(),
		"filters":   len(h.servletCtx.Filters()),
		"duration":  time.Since(started).String(),
	})
	return nil
}

// wait blocks until the framework finished booting.
func (h *Handler) wait(ctx context.Context) error {
	select {
	case <-h.initDone:
		return h.initErr
	case <-ctx.Done():
		return apperrors.ErrContainerInitialization("framework initialization did not finish", ctx.Err())
	}
}

// HandleRequest serves one gateway event.
//
// The returned error is non-nil only when the response cannot be produced: a framework
// initialization failure, or any failure when the exception mapper is disabled. A panic in
// hosted code is re-raised unchanged when the mapper is disabled.
func (h *Handler) HandleRequest(ctx context.Context, ev *api.RequestEvent) (resp *api.ResponseEvent, err error) {
	started := time.Now()
	ctx = logger.WithRequestID(ctx, requestID(ctx, ev))
	log := logger.DeriveRequestLogger(ctx, h.log)

	kind := metrics.KindUnknown
	if ev != nil {
		kind = ev.Kind.String()
	}
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		h.metrics.ObserveInvocation(kind, status, time.Since(started))
	}()

	h.initOnce.Do(func() {
		h.start(ctx)
	})
	if err = h.wait(ctx); err != nil {
		return nil, err
	}

	if ev == nil {
		return nil, apperrors.ErrInvalidRequestEvent("request event is nil", nil)
	}

	log.Debug("received request", "context", map[string]any{
		"kind":   kind,
		"method": ev.Method,
		"path":   ev.Path,
	})

	resp, err = h.serve(ctx, ev, log)
	if err != nil {
		return nil, err
	}

	log.Debug("response ready", "context", map[string]any{
		"status":   resp.StatusCode,
		"base64":   resp.IsBase64Encoded,
		"duration": time.Since(started).String(),
	})
	return resp, nil
}

func (h *Handler) serve(ctx context.Context, ev *api.RequestEvent, log *slog.Logger) (*api.ResponseEvent, error) {
	req, err := h.reader.Read(ctx, ev)
	if err != nil {
		return h.exceptions.Handle(err, ev, log)
	}

	sc, err := security.Write(ev)
	if err != nil {
		return h.exceptions.Handle(err, ev, log)
	}
	servlet.AttributesFrom(req).Set(servlet.AttrSecurityContext, sc)

	ex := servlet.NewExchange(req, servlet.NewResponse(h.cfg.MaxResponseBytes))
	if err = h.container.Dispatch(ctx, ex); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeRequestTimeout) {
			h.metrics.AsyncTimeout()
		}
		return h.exceptions.Handle(err, ev, log)
	}
	if err = ex.Response.Err(); err != nil {
		return h.exceptions.Handle(err, ev, log)
	}

	out, err := h.writer.Write(ex.Response, ev)
	if err != nil {
		return h.exceptions.Handle(err, ev, log)
	}
	return out, nil
}

// requestID prefers the Lambda request ID, then the gateway one, then a fresh UUID.
func requestID(ctx context.Context, ev *api.RequestEvent) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if ev != nil && ev.Context.RequestID != "" {
		return ev.Context.RequestID
	}
	return uuid.NewString()
}
