// Package clock abstracts the wall clock so limiters and stores can be driven
// by a controllable time source in tests.
package clock

import "time"

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// UnixMilli returns the clock's current time in milliseconds since the epoch.
func UnixMilli(c Clock) int64 {
	return c.Now().UnixMilli()
}
