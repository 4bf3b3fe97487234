package servlet

import (
	"errors"
	"fmt"

	apperrors "github.com/runvoy/lambdahost/internal/errors"
)

var (
	// ErrIllegalState marks a programming error in the exchange lifecycle.
	ErrIllegalState = errors.New("illegal state")
	// ErrAlreadyCommitted is returned by a second Finalize.
	ErrAlreadyCommitted = fmt.Errorf("%w: response already committed", ErrIllegalState)
	// ErrResponseCommitted is returned by writes after the response was finalized.
	ErrResponseCommitted = errors.New("write after response commit")
	// ErrContextFrozen is returned by registrations after initialization.
	ErrContextFrozen = errors.New("servlet context is frozen")
	// ErrNoServlet is returned when no primary servlet is registered.
	ErrNoServlet = errors.New("no servlet registered")
	// ErrResponseTooLarge is returned by writes that would exceed the response buffer bound.
	ErrResponseTooLarge = apperrors.ErrResponseTooLarge("response body exceeds the maximum payload size", nil)
)

// PanicError carries a panic recovered from hosted code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// HandlerError carries an error reported by hosted code through HandlerFunc
// or AsyncContext.CompleteWithError.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
