// Package clock lets stores and orchestrators read time through an interface
package clock

import "time"

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// Real reads the system clock
type Real struct{}

// Now returns the current time
func (c *Real) Now() time.Time {
	return time.Now()
}

// New returns the system clock
func New() Clock {
	return &Real{}
}

// Fixed always reports the same instant. Advance moves it forward.
type Fixed struct {
	At time.Time
}

// Now returns the fixed instant
func (c *Fixed) Now() time.Time {
	return c.At
}

// Advance moves the fixed instant forward by d
func (c *Fixed) Advance(d time.Duration) {
	c.At = c.At.Add(d)
}
