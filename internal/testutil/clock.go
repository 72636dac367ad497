package testutil

import "sync/atomic"

// Clock is a resettable logical clock. Trace records take their sequence
// numbers from it instead of wall-clock time.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or 0.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock so the next call to Next returns 1.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
