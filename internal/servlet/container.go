// Package servlet emulates the parts of a servlet engine that hosted net/http applications
// rely on for exactly one request/response cycle per invocation: a buffered response
// with commit semantics, a completion latch for asynchronous handlers, a shared context with
// an ordered filter chain, and panic/error capture around dispatch.
//
// A timed-out asynchronous handler is not interrupted. Its request context is cancelled
// so cooperative code can stop, but any goroutine it started keeps running.
package servlet

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/runvoy/lambdahost/internal/constants"
	apperrors "github.com/runvoy/lambdahost/internal/errors"
)

// HandlerFunc is an http.Handler that can report an error to the container.
// The error is surfaced as a *HandlerError from Dispatch.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}
	if ex := exchangeFrom(r.Context()); ex != nil {
		ex.fail(err)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Container drives a handler through one exchange at a time.
type Container struct {
	handler      http.Handler
	asyncTimeout time.Duration
}

// NewContainer creates a container for the given handler chain.
func NewContainer(handler http.Handler, asyncTimeout time.Duration) *Container {
	if asyncTimeout <= 0 {
		asyncTimeout = constants.DefaultAsyncTimeout
	}
	return &Container{handler: handler, asyncTimeout: asyncTimeout}
}

// Dispatch runs the exchange to completion and commits its response exactly once.
//
// The returned error is a *PanicError when the handler panicked, a *HandlerError when
// hosted code reported one, a REQUEST_TIMEOUT AppError when an async handler did not
// complete in time, or an ErrIllegalState error when the exchange was already dispatched.
func (c *Container) Dispatch(ctx context.Context, ex *Exchange) error {
	if err := ex.transition(StateDispatching); err != nil {
		return err
	}

	// The request keeps its own values (attributes, Lambda context) and is also
	// cancelled when the invocation context is.
	reqCtx, cancel := context.WithCancel(ex.Request.Context())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	ctx = reqCtx

	r := ex.Request.WithContext(withExchange(ctx, ex))
	if perr := c.serve(ex.Response, r); perr != nil {
		c.commit(ex, StateSyncComplete)
		return perr
	}

	async := ex.asyncContext()
	if async == nil {
		c.commit(ex, StateSyncComplete)
		return ex.err()
	}

	if err := ex.transition(StateAwaitingAsync); err != nil {
		return err
	}

	timeout := async.Timeout()
	if timeout <= 0 {
		timeout = c.asyncTimeout
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, timeout)
	defer cancelWait()

	if err := ex.Response.Latch().Wait(waitCtx); err != nil {
		// Force-commit whatever was written. Losing the race to Complete means the handler finished.
		if ferr := ex.Response.Expire(); ferr == nil {
			_ = ex.transition(StateCommitted)
			return apperrors.ErrRequestTimeout(
				fmt.Sprintf("async request did not complete within %s", timeout), err)
		}
	}

	_ = ex.transition(StateCommitted)
	return ex.err()
}

func (c *Container) serve(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	c.handler.ServeHTTP(w, r)
	return nil
}

// commit finalizes a synchronously completed exchange. A handler that started async
// work before panicking may still own the header map, so it is not read.
func (c *Container) commit(ex *Exchange, via State) {
	_ = ex.transition(via)
	if ex.asyncContext() != nil {
		_ = ex.Response.Expire()
	} else {
		_ = ex.Response.Finalize()
	}
	_ = ex.transition(StateCommitted)
}
