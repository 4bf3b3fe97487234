package servlet

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
)

// State is the lifecycle position of an Exchange.
type State int

// Exchange states
const (
	StateCreated State = iota
	StateDispatching
	StateSyncComplete
	StateAwaitingAsync
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateDispatching:
		return "DISPATCHING"
	case StateSyncComplete:
		return "SYNC_COMPLETE"
	case StateAwaitingAsync:
		return "AWAITING_ASYNC"
	case StateCommitted:
		return "COMMITTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateCreated:       {StateDispatching},
	StateDispatching:   {StateSyncComplete, StateAwaitingAsync},
	StateSyncComplete:  {StateCommitted},
	StateAwaitingAsync: {StateCommitted},
}

// Exchange is the request/response pair of a single invocation.
type Exchange struct {
	Request  *http.Request
	Response *Response

	mu         sync.Mutex
	state      State
	async      *AsyncContext
	handlerErr error
}

// NewExchange pairs a synthetic request with a fresh response.
func NewExchange(r *http.Request, resp *Response) *Exchange {
	return &Exchange{Request: r, Response: resp, state: StateCreated}
}

// State returns the current state.
func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchange) transition(to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.Contains(transitions[e.state], to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrIllegalState, e.state, to)
	}
	e.state = to
	return nil
}

// fail records the first error reported by hosted code.
func (e *Exchange) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlerErr == nil {
		e.handlerErr = err
	}
}

func (e *Exchange) err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlerErr == nil {
		return nil
	}
	return &HandlerError{Err: e.handlerErr}
}

func (e *Exchange) asyncContext() *AsyncContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.async
}

type exchangeContextKey struct{}

func withExchange(ctx context.Context, ex *Exchange) context.Context {
	return context.WithValue(ctx, exchangeContextKey{}, ex)
}

func exchangeFrom(ctx context.Context) *Exchange {
	ex, _ := ctx.Value(exchangeContextKey{}).(*Exchange)
	return ex
}
