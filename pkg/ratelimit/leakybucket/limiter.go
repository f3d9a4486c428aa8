package leakybucket

import (
	"math"
	"sync/atomic"

	"github.com/vnykmshr/gatelimit/pkg/common/clock"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/common/validation"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
	"github.com/vnykmshr/gatelimit/pkg/store"
)

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Store holds the per-key bucket records.
	Store store.CounterStore

	// Rate is the sustained number of requests per second.
	Rate float64

	// Burst is the number of requests per second tolerated above Rate before
	// requests are rejected. Zero means no backlog at all.
	Burst float64

	// Clock provides the current time. If nil, SystemClock is used.
	Clock clock.Clock
}

// Limiter is a leaky bucket kept in a shared store. Requests under the rate
// pass immediately; requests above it are accepted with a delay until the
// backlog exceeds the burst, after which they are rejected.
type Limiter struct {
	store store.CounterStore
	clock clock.Clock

	// milli-requests per second
	rate  atomic.Int64
	burst atomic.Int64
}

var _ ratelimit.Limiter = (*Limiter)(nil)

// New creates a leaky bucket limiter allowing rate requests per second with
// an extra burst requests per second of backlog.
func New(s store.CounterStore, rate, burst float64) (*Limiter, error) {
	return NewWithConfig(Config{
		Store: s,
		Rate:  rate,
		Burst: burst,
	})
}

// NewWithConfig creates a leaky bucket limiter with the specified configuration.
func NewWithConfig(config Config) (*Limiter, error) {
	if err := validation.ValidateNotNil("leakybucket", "store", config.Store); err != nil {
		return nil, err
	}
	rate, err := scaleRate(config.Rate)
	if err != nil {
		return nil, err
	}
	burst, err := scaleBurst(config.Burst)
	if err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = clock.SystemClock{}
	}

	l := &Limiter{
		store: config.Store,
		clock: config.Clock,
	}
	l.rate.Store(rate)
	l.burst.Store(burst)
	return l, nil
}

// SetRate changes the rate. Stored records are not rewritten; they converge
// under the new rate as requests arrive. Calls racing with SetRate may use
// either value.
func (l *Limiter) SetRate(rate float64) error {
	scaled, err := scaleRate(rate)
	if err != nil {
		return err
	}
	l.rate.Store(scaled)
	return nil
}

// SetBurst changes the burst with the same visibility rules as SetRate.
func (l *Limiter) SetBurst(burst float64) error {
	scaled, err := scaleBurst(burst)
	if err != nil {
		return err
	}
	l.burst.Store(scaled)
	return nil
}

// Rate returns the current rate in requests per second.
func (l *Limiter) Rate() float64 {
	return float64(l.rate.Load()) / 1000
}

// Burst returns the current burst in requests per second.
func (l *Limiter) Burst() float64 {
	return float64(l.burst.Load()) / 1000
}

func scaleRate(rate float64) (int64, error) {
	if err := validation.ValidatePositiveFloat("leakybucket", "rate", rate); err != nil {
		return 0, err
	}
	scaled := math.Round(rate * 1000)
	if scaled < 1 {
		return 0, gferrors.NewValidationError("leakybucket", "rate", rate, "below 0.001 requests per second").
			WithHint("rates are kept in milli-requests per second")
	}
	if scaled > maxExcess {
		return 0, gferrors.NewValidationError("leakybucket", "rate", rate, "too large")
	}
	return int64(scaled), nil
}

func scaleBurst(burst float64) (int64, error) {
	if err := validation.ValidateNonNegative("leakybucket", "burst", burst); err != nil {
		return 0, err
	}
	scaled := math.Round(burst * 1000)
	if scaled > maxExcess {
		return 0, gferrors.NewValidationError("leakybucket", "burst", burst, "too large")
	}
	return int64(scaled), nil
}
