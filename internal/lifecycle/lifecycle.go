// Package lifecycle wires SIGINT/SIGTERM into a cancelable context and an
// exit-requested flag, generalizing the teacher's main()'s inline signal
// channel and context.WithCancel pair into a reusable type shared by both
// binaries' run loops.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/atomic"
)

// Controller tracks whether shutdown has been requested, either via an OS
// signal or an explicit Stop call, and exposes both a context and a flag
// so hot loops can check either without blocking.
type Controller struct {
	ctx          context.Context
	cancel       context.CancelFunc
	sigCh        chan os.Signal
	stopRequested atomic.Bool
}

// New installs a SIGINT/SIGTERM handler and returns a Controller whose
// context is canceled when either signal arrives or Stop is called.
func New() *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:    ctx,
		cancel: cancel,
		sigCh:  make(chan os.Signal, 2),
	}
	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGTERM)
	go c.waitForSignal()
	return c
}

func (c *Controller) waitForSignal() {
	select {
	case <-c.sigCh:
		c.Stop()
	case <-c.ctx.Done():
	}
}

// Done returns the channel closed once shutdown has been requested,
// suitable for use in a select alongside a tick.Driver's Advance loop.
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Context returns the underlying cancelable context.
func (c *Controller) Context() context.Context {
	return c.ctx
}

// ShouldExit reports whether shutdown has been requested, non-blocking.
func (c *Controller) ShouldExit() bool {
	return c.stopRequested.Load()
}

// Stop requests shutdown idempotently: safe to call more than once, and
// safe to call from any goroutine.
func (c *Controller) Stop() {
	if c.stopRequested.CompareAndSwap(false, true) {
		c.cancel()
	}
}

// Close stops signal delivery to this controller's channel. Call once
// the run loop has exited to avoid leaking the os/signal registration.
func (c *Controller) Close() {
	signal.Stop(c.sigCh)
}
