// Package clock supplies the time sources injected into every governor component
// and a tick-driven timer scheduler for deferred work
package clock

import "time"

// Clock is the wall-clock collaborator
// Components never call time.Now directly so tests can drive time explicitly
type Clock interface {
	Now() time.Time
}

// Real reads the system monotonic clock
type Real struct{}

// Now returns time.Now, which carries a monotonic reading
func (Real) Now() time.Time {
	return time.Now()
}

// OrReal returns c, or a Real clock when c is nil
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}
