package servlet

import (
	"context"
	"sync"
)

// Latch is a one-shot completion gate. Release may be called any number of times
// from any goroutine; only the first call has an effect.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch creates a latch in the held state.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Release opens the latch.
func (l *Latch) Release() {
	l.once.Do(func() { close(l.ch) })
}

// Done returns a channel that is closed once the latch is released.
func (l *Latch) Done() <-chan struct{} {
	return l.ch
}

// Released reports whether Release has been called.
func (l *Latch) Released() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the latch is released or ctx is done.
// A released latch always wins over a context that is done at the same time.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		if l.Released() {
			return nil
		}
		return ctx.Err()
	}
}
