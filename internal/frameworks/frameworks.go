// Package frameworks adapts common Go web frameworks to the container's Framework interface.
// Every adapter registers the application through its net/http handler.
package frameworks

import (
	"context"
	"errors"
	"net/http"

	"github.com/runvoy/lambdahost/internal/servlet"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// Framework names
const (
	NameHTTP  = "http"
	NameChi   = "chi"
	NameGin   = "gin"
	NameFiber = "fiber"
)

// InitFunc boots an application and returns its handler.
type InitFunc func(ctx context.Context, sc *servlet.Context) (http.Handler, error)

// Framework is a named application bootstrap.
type Framework struct {
	name string
	init InitFunc
}

// New creates a framework from an arbitrary bootstrap function.
func New(name string, init InitFunc) *Framework {
	return &Framework{name: name, init: init}
}

// Name returns the framework name, also used as the primary servlet name.
func (f *Framework) Name() string {
	return f.name
}

// Initialize runs the bootstrap function.
func (f *Framework) Initialize(ctx context.Context, sc *servlet.Context) (http.Handler, error) {
	if f.init == nil {
		return nil, errors.New("framework has no bootstrap function")
	}
	return f.init(ctx, sc)
}

// HTTP hosts a ready-made handler.
func HTTP(handler http.Handler) *Framework {
	return New(NameHTTP, func(context.Context, *servlet.Context) (http.Handler, error) {
		if handler == nil {
			return nil, errors.New("handler is nil")
		}
		return handler, nil
	})
}

// Chi hosts a chi router configured by setup.
// Setup functions receive the servlet context to register filters and resources.
func Chi(setup func(r chi.Router, sc *servlet.Context) error) *Framework {
	return New(NameChi, func(_ context.Context, sc *servlet.Context) (http.Handler, error) {
		r := chi.NewRouter()
		if setup != nil {
			if err := setup(r, sc); err != nil {
				return nil, err
			}
		}
		return r, nil
	})
}

// Gin hosts a gin engine configured by setup. The engine runs in release mode without
// the default logger and recovery middleware, so panics reach the container.
func Gin(setup func(e *gin.Engine, sc *servlet.Context) error) *Framework {
	return New(NameGin, func(_ context.Context, sc *servlet.Context) (http.Handler, error) {
		gin.SetMode(gin.ReleaseMode)
		e := gin.New()
		if setup != nil {
			if err := setup(e, sc); err != nil {
				return nil, err
			}
		}
		return e, nil
	})
}

// Fiber hosts a fiber app configured by setup. Requests are bridged from net/http
// with the fiber adaptor middleware. The bridged request does not carry the net/http
// request context, so fiber handlers cannot start asynchronous processing.
func Fiber(setup func(app *fiber.App, sc *servlet.Context) error, config ...fiber.Config) *Framework {
	return New(NameFiber, func(_ context.Context, sc *servlet.Context) (http.Handler, error) {
		app := fiber.New(config...)
		if setup != nil {
			if err := setup(app, sc); err != nil {
				return nil, err
			}
		}
		return adaptor.FiberApp(app), nil
	})
}
