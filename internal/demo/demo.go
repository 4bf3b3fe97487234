// Package demo is a small application used by the Lambda entry points and the CLI
// to exercise the adapter end to end.
package demo

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/runvoy/lambdahost/internal/assets"
	"github.com/runvoy/lambdahost/internal/constants"
	"github.com/runvoy/lambdahost/internal/frameworks"
	"github.com/runvoy/lambdahost/internal/logger"
	"github.com/runvoy/lambdahost/internal/security"
	"github.com/runvoy/lambdahost/internal/servlet"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/gofiber/fiber/v3"
)

const (
	binaryResource     = "pixel.png"
	defaultAsyncDelay  = 10 * time.Millisecond
	staticPrefix       = "/static/"
	echoMethodHeader   = "X-Echo-Method"
	maxAsyncDelayParam = 30 * time.Second
)

// Identity is the body of /whoami.
type Identity struct {
	Authenticated bool     `json:"authenticated"`
	Scheme        string   `json:"scheme,omitempty"`
	Principal     string   `json:"principal,omitempty"`
	Groups        []string `json:"groups,omitempty"`
	Secure        bool     `json:"secure"`
	RequestID     string   `json:"requestId,omitempty"`
	ContextPath   string   `json:"contextPath,omitempty"`
}

// Chi returns the demo application on chi.
func Chi() *frameworks.Framework {
	return frameworks.Chi(Routes)
}

// Gin returns the demo application on gin.
func Gin() *frameworks.Framework {
	return frameworks.Gin(GinRoutes)
}

// Fiber returns the demo application on fiber.
func Fiber() *frameworks.Framework {
	return frameworks.Fiber(FiberRoutes)
}

// ByName returns the demo application for a framework name, or nil.
func ByName(name string) *frameworks.Framework {
	switch name {
	case frameworks.NameChi:
		return Chi()
	case frameworks.NameGin:
		return Gin()
	case frameworks.NameFiber:
		return Fiber()
	default:
		return nil
	}
}

// Routes mounts the demo endpoints on a chi router.
func Routes(r chi.Router, sc *servlet.Context) error {
	if err := sc.SetResources(assets.Static()); err != nil {
		return err
	}

	r.Get("/test", Test)
	r.Get("/async", Async)
	r.Get("/binary", Binary(sc))
	r.Get("/whoami", WhoAmI)
	r.Post("/echo", Echo)
	r.Put("/echo", Echo)
	r.Get(staticPrefix+"*", Static(sc))
	return nil
}

// GinRoutes mounts the demo endpoints on a gin engine.
func GinRoutes(e *gin.Engine, sc *servlet.Context) error {
	if err := sc.SetResources(assets.Static()); err != nil {
		return err
	}

	e.GET("/test", gin.WrapF(Test))
	e.GET("/async", gin.WrapF(Async))
	e.GET("/binary", gin.WrapF(Binary(sc)))
	e.GET("/whoami", gin.WrapF(WhoAmI))
	e.POST("/echo", gin.WrapF(Echo))
	e.PUT("/echo", gin.WrapF(Echo))
	e.GET(staticPrefix+"*filepath", gin.WrapF(Static(sc)))
	return nil
}

// FiberRoutes mounts the demo endpoints that do not need the net/http request context.
func FiberRoutes(app *fiber.App, sc *servlet.Context) error {
	if err := sc.SetResources(assets.Static()); err != nil {
		return err
	}

	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/binary", func(c fiber.Ctx) error {
		data, err := sc.Resource(binaryResource)
		if err != nil {
			return err
		}
		c.Set(constants.ContentTypeHeader, sc.MimeType(binaryResource))
		return c.Send(data)
	})
	echo := func(c fiber.Ctx) error {
		c.Set(constants.ContentTypeHeader, c.Get(constants.ContentTypeHeader))
		c.Set(echoMethodHeader, c.Method())
		return c.Send(c.Body())
	}
	app.Post("/echo", echo)
	app.Put("/echo", echo)
	return nil
}

// Test answers "OK".
func Test(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "OK")
}

// Async completes the response from another goroutine after ?delay= (default 10ms).
func Async(w http.ResponseWriter, r *http.Request) {
	delay := defaultAsyncDelay
	if raw := r.URL.Query().Get("delay"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 || d > maxAsyncDelayParam {
			http.Error(w, "invalid delay", http.StatusBadRequest)
			return
		}
		delay = d
	}

	ac, err := servlet.StartAsync(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			if err := ac.CompleteWithError(ctx.Err()); err != nil {
				logger.DeriveRequestLogger(ctx, slog.Default()).Debug("async request already committed", "error", err)
			}
			return
		}

		resp := ac.Response()
		resp.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
		_ = json.NewEncoder(resp).Encode(map[string]any{
			"async": true,
			"delay": delay.String(),
		})
		if err := ac.Complete(); err != nil {
			logger.DeriveRequestLogger(ctx, slog.Default()).Debug("async request already committed", "error", err)
		}
	}()
}

// Binary serves the embedded PNG.
func Binary(sc *servlet.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := sc.Resource(binaryResource)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set(constants.ContentTypeHeader, sc.MimeType(binaryResource))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}

// Static serves embedded resources below /static/.
func Static(sc *servlet.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, staticPrefix)
		data, err := sc.Resource(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if mt := sc.MimeType(name); mt != "" {
			w.Header().Set(constants.ContentTypeHeader, mt)
		}
		_, _ = w.Write(data)
	}
}

// WhoAmI describes the caller identity.
func WhoAmI(w http.ResponseWriter, r *http.Request) {
	sc := security.FromRequest(r)
	id := Identity{
		Authenticated: sc.Authenticated(),
		Scheme:        string(sc.Scheme),
		Secure:        sc.Secure,
		RequestID:     logger.GetRequestID(r.Context()),
	}
	if cp, ok := servlet.AttributesFrom(r).Get(servlet.AttrContextPath).(string); ok {
		id.ContextPath = cp
	}
	if p := sc.UserPrincipal(); p != nil {
		id.Principal = p.Name
		if p.Claims != nil {
			id.Groups = p.Claims.Groups()
		}
	}

	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	_ = json.NewEncoder(w).Encode(id)
}

// Echo writes the request body back with the same content type.
func Echo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ct := r.Header.Get(constants.ContentTypeHeader); ct != "" {
		w.Header().Set(constants.ContentTypeHeader, ct)
	}
	w.Header().Set(echoMethodHeader, r.Method)
	_, _ = w.Write(body)
}
