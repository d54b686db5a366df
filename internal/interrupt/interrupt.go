// Package interrupt implements the process-wide cancellation flag the agent
// loop polls at defined checkpoints: a level-triggered flag flipped by
// either an OS signal handler or a background terminal keyboard watcher.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Controller tracks whether an interrupt has been requested and notifies
// registered callbacks when it fires.
type Controller struct {
	flag int32

	mu        sync.Mutex
	callbacks []func()

	sigCh   chan os.Signal
	sigDone chan struct{}
}

// New creates a Controller with no signal handler or keyboard watcher
// installed yet.
func New() *Controller {
	return &Controller{}
}

// IsInterrupted reports whether an interrupt is currently pending.
func (c *Controller) IsInterrupted() bool {
	return atomic.LoadInt32(&c.flag) != 0
}

// Clear resets the interrupt flag, called at the start of each new agent
// turn so a prior interrupt doesn't leak into the next request.
func (c *Controller) Clear() {
	atomic.StoreInt32(&c.flag, 0)
}

// Interrupt flips the flag and runs every registered callback, swallowing
// any panic from an individual callback so one bad callback can't prevent
// the others from running.
func (c *Controller) Interrupt() {
	atomic.StoreInt32(&c.flag, 1)
	c.mu.Lock()
	callbacks := append([]func(){}, c.callbacks...)
	c.mu.Unlock()
	for _, cb := range callbacks {
		runGuarded(cb)
	}
}

func runGuarded(cb func()) {
	defer func() { recover() }()
	cb()
}

// AddCallback registers a function to run whenever Interrupt fires.
func (c *Controller) AddCallback(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// SetupSignalHandler installs a SIGINT handler that calls Interrupt.
func (c *Controller) SetupSignalHandler() {
	c.sigCh = make(chan os.Signal, 1)
	c.sigDone = make(chan struct{})
	signal.Notify(c.sigCh, os.Interrupt)
	go func() {
		for {
			select {
			case <-c.sigCh:
				c.Interrupt()
			case <-c.sigDone:
				return
			}
		}
	}()
}

// RestoreSignalHandler stops intercepting SIGINT.
func (c *Controller) RestoreSignalHandler() {
	if c.sigCh == nil {
		return
	}
	signal.Stop(c.sigCh)
	close(c.sigDone)
	c.sigCh = nil
}
