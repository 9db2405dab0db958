package engine

import "sync/atomic"

// Controls is the operator's handle on a running batch: continue a
// manually suspended flow, or stop the batch between accounts. Both
// are safe to call from any goroutine.
type Controls struct {
	continueCh chan struct{}
	stopped    atomic.Bool
}

// NewControls creates an idle control handle.
func NewControls() *Controls {
	return &Controls{continueCh: make(chan struct{}, 1)}
}

// RequestContinue resumes the flow currently suspended for manual
// verification. Requests made while nothing is suspended are kept for
// the next suspension; duplicates coalesce.
func (c *Controls) RequestContinue() {
	select {
	case c.continueCh <- struct{}{}:
	default:
	}
}

// ContinueSignal is the channel a runner blocks on while suspended.
func (c *Controls) ContinueSignal() <-chan struct{} {
	return c.continueCh
}

// RequestStop asks the batch to stop after the account currently in
// flight. The in-flight flow is never interrupted.
func (c *Controls) RequestStop() {
	c.stopped.Store(true)
}

// StopRequested reports whether a stop was requested.
func (c *Controls) StopRequested() bool {
	return c.stopped.Load()
}
