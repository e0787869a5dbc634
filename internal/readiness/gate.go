// Package readiness provides the one-shot gate a Video uses to hold
// transport calls until its render surface has buffered enough data.
package readiness

import (
	"context"
	"errors"
	"sync"
)

// ErrCanceled is returned to waiters whose gate was canceled before it
// resolved, typically because the stream was unloaded.
var ErrCanceled = errors.New("readiness wait canceled")

// Gate is a single-producer future. It settles exactly once, either
// resolved or canceled, and every waiter observes the same outcome.
type Gate struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	err     error
}

// NewGate creates an unsettled gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Resolve settles the gate successfully. It returns false if the gate was
// already settled.
func (g *Gate) Resolve() bool {
	return g.settle(nil)
}

// Cancel settles the gate with err wrapped around ErrCanceled. It returns
// false if the gate was already settled.
func (g *Gate) Cancel(cause error) bool {
	err := ErrCanceled
	if cause != nil {
		err = errors.Join(ErrCanceled, cause)
	}
	return g.settle(err)
}

func (g *Gate) settle(err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settled {
		return false
	}
	g.settled = true
	g.err = err
	close(g.done)
	return true
}

// Resolved reports whether the gate settled successfully.
func (g *Gate) Resolved() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settled && g.err == nil
}

// Settled reports whether the gate resolved or was canceled.
func (g *Gate) Settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settled
}

// Wait blocks until the gate settles or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the gate settles.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
