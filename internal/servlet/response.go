package servlet

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/runvoy/lambdahost/internal/constants"
)

// Response is the synthetic http.ResponseWriter. The body is buffered in memory;
// status and headers stay mutable until Flush or Finalize commits them.
type Response struct {
	mu sync.Mutex

	header   http.Header
	snapshot http.Header
	status   int
	body     bytes.Buffer
	maxBytes int

	headersCommitted bool
	finalized        bool
	overflowed       bool

	latch *Latch
}

// NewResponse creates a response bounded to maxBytes of body.
// A non-positive bound falls back to the gateway payload limit.
func NewResponse(maxBytes int) *Response {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxResponseBytes
	}
	return &Response{
		header:   make(http.Header),
		status:   http.StatusOK,
		maxBytes: maxBytes,
		latch:    NewLatch(),
	}
}

// Header returns the mutable header map. Changes made after headers are
// committed are not reflected in the response.
func (r *Response) Header() http.Header {
	return r.header
}

// WriteHeader sets the status code. The last call before commit wins.
func (r *Response) WriteHeader(statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.headersCommitted {
		return
	}
	r.status = statusCode
}

// Write appends to the body buffer.
func (r *Response) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return 0, ErrResponseCommitted
	}
	if r.body.Len()+len(p) > r.maxBytes {
		r.overflowed = true
		return 0, ErrResponseTooLarge
	}
	return r.body.Write(p)
}

// WriteString appends s to the body buffer.
func (r *Response) WriteString(s string) (int, error) {
	return r.Write([]byte(s))
}

// Flush commits status and headers. The body keeps accumulating until Finalize.
func (r *Response) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitHeaders()
}

// Finalize commits the response and releases the completion latch.
// It succeeds exactly once.
func (r *Response) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrAlreadyCommitted
	}
	r.commitHeaders()
	r.finalized = true
	r.latch.Release()
	return nil
}

// Expire commits the response on behalf of a handler that is still running. The live
// header map is never read, since the handler may keep mutating it: headers count only
// if an earlier Flush committed them. The buffered body is kept.
func (r *Response) Expire() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return ErrAlreadyCommitted
	}
	if !r.headersCommitted {
		r.snapshot = make(http.Header)
		r.headersCommitted = true
	}
	r.finalized = true
	r.latch.Release()
	return nil
}

func (r *Response) commitHeaders() {
	if r.headersCommitted {
		return
	}
	r.snapshot = r.header.Clone()
	r.headersCommitted = true
}

// Latch returns the completion latch released by Finalize.
func (r *Response) Latch() *Latch {
	return r.latch
}

// Status returns the current status code.
func (r *Response) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Headers returns a copy of the headers as they will be emitted.
func (r *Response) Headers() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.headersCommitted {
		return r.snapshot.Clone()
	}
	return r.header.Clone()
}

// ContentType returns the emitted Content-Type header.
func (r *Response) ContentType() string {
	return r.Headers().Get(constants.ContentTypeHeader)
}

// Body returns a copy of the buffered body.
func (r *Response) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.body.Bytes())
}

// Committed reports whether Finalize has run.
func (r *Response) Committed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Err returns ErrResponseTooLarge once a write exceeded the body bound, even if the
// handler ignored the write error.
func (r *Response) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overflowed {
		return ErrResponseTooLarge
	}
	return nil
}

// HeadersCommitted reports whether status and headers are frozen.
func (r *Response) HeadersCommitted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headersCommitted
}
