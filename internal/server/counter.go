// Package server tracks delivered messages with a process-wide counter.
package server

import "sync/atomic"

// ViewCounter counts envelopes delivered to clients across all rooms and
// connections. A delivery is counted once per successful socket write, so
// concurrent outbound pumps require atomic increments. The zero value is
// ready to use.
type ViewCounter struct {
	n atomic.Uint64
}

// Increment records one delivered envelope.
func (c *ViewCounter) Increment() {
	c.n.Add(1)
}

// Value returns the current count.
func (c *ViewCounter) Value() uint64 {
	return c.n.Load()
}

// Reset sets the count back to zero.
func (c *ViewCounter) Reset() {
	c.n.Store(0)
}
