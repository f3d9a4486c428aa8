package fixedwindow

import (
	"sync/atomic"
	"time"

	"github.com/vnykmshr/gatelimit/pkg/common/validation"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
	"github.com/vnykmshr/gatelimit/pkg/store"
)

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Store holds the per-key counters.
	Store store.CounterStore

	// Limit is the number of requests accepted per window.
	Limit int64

	// Window is the length of a window. Stores keep expiries in whole
	// milliseconds.
	Window time.Duration
}

// Limiter accepts at most Limit committed requests per key in each window.
type Limiter struct {
	store  store.CounterStore
	limit  atomic.Int64
	window atomic.Int64 // nanoseconds
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a fixed window limiter accepting limit requests per window.
func New(s store.CounterStore, limit int64, window time.Duration) (*Limiter, error) {
	return NewWithConfig(Config{
		Store:  s,
		Limit:  limit,
		Window: window,
	})
}

// NewWithConfig creates a fixed window limiter with the specified configuration.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidateNotNil("fixedwindow", "store", config.Store); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("fixedwindow", "limit", config.Limit); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositiveDuration("fixedwindow", "window", config.Window); err != nil {
		return nil, err
	}

	l := &Limiter{store: config.Store}
	l.limit.Store(config.Limit)
	l.window.Store(int64(config.Window))
	return l, nil
}

// SetLimit changes the limit. Counters already seeded keep counting down from
// the old limit until their window ends. Calls racing with SetLimit may use
// either value.
func (l *Limiter) SetLimit(limit int64) error {
	if err := validation.ValidatePositive("fixedwindow", "limit", limit); err != nil {
		return err
	}
	l.limit.Store(limit)
	return nil
}

// SetWindow changes the window length for windows started afterwards.
func (l *Limiter) SetWindow(window time.Duration) error {
	if err := validation.ValidatePositiveDuration("fixedwindow", "window", window); err != nil {
		return err
	}
	l.window.Store(int64(window))
	return nil
}

// Limit returns the current limit.
func (l *Limiter) Limit() int64 {
	return l.limit.Load()
}

// Window returns the current window length.
func (l *Limiter) Window() time.Duration {
	return time.Duration(l.window.Load())
}
