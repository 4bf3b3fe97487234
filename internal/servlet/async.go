package servlet

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// AsyncContext lets a handler return before its response is complete.
// The container keeps the invocation open until Complete or CompleteWithError is
// called, or the async timeout expires.
type AsyncContext struct {
	ex *Exchange

	mu      sync.Mutex
	timeout time.Duration
}

// StartAsync switches the current request into asynchronous mode.
// Calling it again returns the same AsyncContext.
func StartAsync(r *http.Request) (*AsyncContext, error) {
	ex := exchangeFrom(r.Context())
	if ex == nil {
		return nil, fmt.Errorf("%w: request is not being dispatched by a servlet container", ErrIllegalState)
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.state != StateDispatching {
		return nil, fmt.Errorf("%w: cannot start async in state %s", ErrIllegalState, ex.state)
	}
	if ex.async == nil {
		ex.async = &AsyncContext{ex: ex}
	}
	return ex.async, nil
}

// IsAsyncStarted reports whether StartAsync was called for the request.
func IsAsyncStarted(r *http.Request) bool {
	ex := exchangeFrom(r.Context())
	return ex != nil && ex.asyncContext() != nil
}

// Complete finalizes the response and releases the waiting invocation.
// Any later call, including one made after the container timed the request out,
// returns ErrAlreadyCommitted.
func (a *AsyncContext) Complete() error {
	return a.ex.Response.Finalize()
}

// CompleteWithError records err as the outcome of the request, then completes it.
// The error is not recorded when the response was already committed.
func (a *AsyncContext) CompleteWithError(err error) error {
	if a.ex.Response.Committed() {
		return ErrAlreadyCommitted
	}
	if err != nil {
		a.ex.fail(err)
	}
	return a.Complete()
}

// SetTimeout overrides the container's async timeout for this request.
func (a *AsyncContext) SetTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timeout = d
}

// Timeout returns the per-request override, or zero.
func (a *AsyncContext) Timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeout
}

// Response returns the response being completed.
func (a *AsyncContext) Response() *Response {
	return a.ex.Response
}
