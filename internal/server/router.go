// Package server emulates an API gateway locally. Incoming HTTP requests are converted
// into gateway events of one configured kind, served through the container handler and
// the gateway response is written back as a plain HTTP response.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reserved routes of the emulator itself.
const (
	HealthPath  = "/_lambdahost/health"
	InvokePath  = "/_lambdahost/invoke"
	MetricsPath = "/_lambdahost/metrics"
)

// EventHandler serves gateway events. *container.Handler implements it.
type EventHandler interface {
	HandleRequest(ctx context.Context, ev *api.RequestEvent) (*api.ResponseEvent, error)
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics exposes the metrics gathered by g at MetricsPath.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(r *Router) {
		r.gatherer = g
	}
}

// Router is the local gateway.
type Router struct {
	router   *chi.Mux
	handler  EventHandler
	kind     api.EventKind
	stage    string
	log      *slog.Logger
	gatherer prometheus.Gatherer
}

// NewRouter creates a chi router emulating a gateway of the given kind.
func NewRouter(handler EventHandler, kind api.EventKind, stage string, log *slog.Logger, opts ...Option) *Router {
	r := chi.NewRouter()
	router := &Router{
		router:  r,
		handler: handler,
		kind:    kind,
		stage:   stage,
		log:     log,
	}
	for _, opt := range opts {
		opt(router)
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(router.accessLog)

	r.Get(HealthPath, router.handleHealth)

	// Accepts a raw event and answers with the raw gateway response.
	// Example: curl -X POST http://localhost:3000/_lambdahost/invoke -d @event.json
	r.Post(InvokePath, router.handleInvoke)

	if router.gatherer != nil {
		r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(router.gatherer, promhttp.HandlerOpts{
			ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError),
		}))
	}

	r.HandleFunc("/*", router.handleProxy)
	return router
}

// ServeHTTP implements http.Handler for use with chi router
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Handler returns an http.Handler for the router
func (r *Router) Handler() http.Handler {
	return r.router
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"kind":   r.kind.String(),
	})
}

func (r *Router) handleInvoke(w http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		writeGatewayError(w, http.StatusBadRequest, "failed to read event")
		return
	}

	out, err := r.handler.Invoke(req.Context(), payload)
	if err != nil {
		r.log.Error("invocation failed", "error", err)
		writeGatewayError(w, http.StatusBadGateway, "Internal server error")
		return
	}

	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	_, _ = w.Write(out)
}

func (r *Router) handleProxy(w http.ResponseWriter, req *http.Request) {
	ev, err := NewEvent(req, r.kind, r.stage, middleware.GetReqID(req.Context()))
	if err != nil {
		writeGatewayError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := r.handler.HandleRequest(req.Context(), ev)
	if err != nil {
		// API Gateway answers function errors with a bare 502.
		r.log.Error("invocation failed", "error", err)
		writeGatewayError(w, http.StatusBadGateway, "Internal server error")
		return
	}

	if err = WriteResponse(w, resp); err != nil {
		r.log.Error("failed to write response", "error", err)
	}
}

func (r *Router) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		r.log.Info("request served", "context", map[string]any{
			"method":    req.Method,
			"path":      req.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"requestID": middleware.GetReqID(req.Context()),
		})
	})
}

func writeGatewayError(w http.ResponseWriter, status int, message string) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Message: message})
}
