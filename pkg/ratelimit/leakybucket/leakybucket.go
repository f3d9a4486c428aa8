package leakybucket

import (
	"context"
	"time"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
)

// Incoming checks a request for key.
//
// The stored backlog drains at the configured rate since its last update and
// this request adds one request (1000 milli-requests), floored at zero. If the result
// exceeds the burst the request is rejected with errors.ErrRejected.
// Otherwise it is accepted with Delay = backlog / rate, and if commit is true
// the new backlog is written back, overwriting whatever another caller may
// have written in the meantime.
//
// The first request ever seen for a key is accepted with no backlog.
func (l *Limiter) Incoming(ctx context.Context, key string, commit bool) (ratelimit.Result, error) {
	now := l.clock.Now().UnixMilli()
	rate := l.rate.Load()
	burst := l.burst.Load()

	rec, found, err := l.load(ctx, key)
	if err != nil {
		return ratelimit.Result{}, err
	}

	var excess int64
	if found {
		excess = leak(int64(rec.Excess), rate, absDiff(now, int64(rec.Last)))
		if excess > burst {
			return ratelimit.Result{}, gferrors.ErrRejected
		}
	}

	if commit {
		if err := l.save(ctx, key, Record{Excess: uint64(excess), Last: uint64(now)}); err != nil {
			return ratelimit.Result{}, err
		}
	}

	return result(excess, rate), nil
}

// Uncommit removes one request from the key's backlog, leaving its timestamp
// untouched. The backlog is not drained first. It returns errors.ErrNotFound
// when the key has no record.
func (l *Limiter) Uncommit(ctx context.Context, key string) (ratelimit.Result, error) {
	rec, found, err := l.load(ctx, key)
	if err != nil {
		return ratelimit.Result{}, err
	}
	if !found {
		return ratelimit.Result{}, gferrors.ErrNotFound
	}

	if rec.Excess > 1000 {
		rec.Excess -= 1000
	} else {
		rec.Excess = 0
	}

	if err := l.save(ctx, key, rec); err != nil {
		return ratelimit.Result{}, err
	}
	return result(int64(rec.Excess), l.rate.Load()), nil
}

func (l *Limiter) load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return Record{}, false, err
	}
	if raw == nil {
		return Record{}, false, nil
	}

	var rec Record
	if err := rec.UnmarshalBinary(raw); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (l *Limiter) save(ctx context.Context, key string, rec Record) error {
	buf, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, buf)
}

// leak drains excess at rate milli-requests per second over elapsedMs
// milliseconds, adds this request's 1000 and floors the result at zero.
func leak(excess, rate, elapsedMs int64) int64 {
	fill := excess + 1000

	// Whole seconds and the millisecond remainder are drained separately so
	// no product leaves int64: rate*secs stays below fill once the early
	// return is passed, and rate*ms is at most maxExcess*999.
	secs, ms := elapsedMs/1000, elapsedMs%1000
	if secs > fill/rate {
		return 0
	}
	left := fill - rate*secs - rate*ms/1000
	if left < 0 {
		return 0
	}
	return left
}

// absDiff tolerates clocks that disagree across gateway processes.
func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func result(excess, rate int64) ratelimit.Result {
	return ratelimit.Result{
		Delay:  time.Duration(float64(excess) / float64(rate) * float64(time.Second)),
		Excess: float64(excess) / 1000,
	}
}
