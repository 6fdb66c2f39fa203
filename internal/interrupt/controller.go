// internal/interrupt/controller.go
// One-way cancellation state machine for a single scan

package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// State of a scan with respect to cancellation
type State int32

const (
	Running State = iota
	CancelRequested
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case CancelRequested:
		return "cancel_requested"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Controller moves Running -> CancelRequested -> Cancelled and never back.
// Whoever asks for cancellation (signal, API, timeout) only calls Request;
// the engine reacts to Requested and calls MarkCancelled when its shutdown
// actions have been issued.
type Controller struct {
	mu        sync.Mutex
	state     State
	reason    string
	requested chan struct{}
}

// New creates a controller in the Running state
func New() *Controller {
	return &Controller{requested: make(chan struct{})}
}

// Request asks for cancellation. Returns true only for the call that
// performed the Running -> CancelRequested transition.
func (c *Controller) Request(reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return false
	}
	c.state = CancelRequested
	c.reason = reason
	close(c.requested)
	return true
}

// Requested is closed once cancellation has been requested
func (c *Controller) Requested() <-chan struct{} {
	return c.requested
}

// MarkCancelled completes shutdown. Only valid from CancelRequested.
func (c *Controller) MarkCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CancelRequested {
		return false
	}
	c.state = Cancelled
	return true
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason returns what requested cancellation, if anything did
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// WatchSignals requests cancellation on the first of sigs (SIGINT and
// SIGTERM when none are given). A second signal calls onForce, if set.
// The watcher stops when ctx is done.
func WatchSignals(ctx context.Context, c *Controller, onForce func(), sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, sigs...)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if c.Request("signal: " + sig.String()) {
					continue
				}
				if onForce != nil {
					onForce()
				}
				return
			}
		}
	}()
}
