package fixedwindow

import (
	"context"
	"errors"
	"fmt"
	"time"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
	"github.com/vnykmshr/gatelimit/pkg/store"
)

// Incoming checks a request for key and reports the quota left after it.
//
// Without commit the counter is only read. With commit it is decremented,
// and a request that takes it below zero is rejected with errors.ErrRejected.
// The rejected decrement is kept, so the counter can go negative until the
// window ends.
func (l *Limiter) Incoming(ctx context.Context, key string, commit bool) (ratelimit.Result, error) {
	limit := l.limit.Load()

	var remaining int64
	if commit {
		n, err := l.take(ctx, key, limit, time.Duration(l.window.Load()))
		if err != nil {
			return ratelimit.Result{}, err
		}
		remaining = n
	} else {
		n, err := l.peek(ctx, key, limit)
		if err != nil {
			return ratelimit.Result{}, err
		}
		remaining = n - 1
	}

	if remaining < 0 {
		return ratelimit.Result{}, gferrors.ErrRejected
	}
	return ratelimit.Result{Remaining: remaining}, nil
}

// Uncommit gives one request back to the key's counter. When the window has
// already ended there is nothing to give back and the full limit is reported.
func (l *Limiter) Uncommit(ctx context.Context, key string) (ratelimit.Result, error) {
	n, err := l.store.Incr(ctx, key, 1)
	if gferrors.IsNotFound(err) {
		return ratelimit.Result{Remaining: l.limit.Load()}, nil
	}
	if err != nil {
		return ratelimit.Result{}, foreign(err)
	}
	return ratelimit.Result{Remaining: n}, nil
}

// take decrements the counter, starting the window when this request seeded
// it. If the counter expired before its new window could be attached, the
// decrement is repeated once against a fresh counter.
func (l *Limiter) take(ctx context.Context, key string, limit int64, window time.Duration) (int64, error) {
	for attempt := 0; ; attempt++ {
		n, err := l.store.IncrWithInit(ctx, key, -1, limit)
		if err != nil {
			return 0, foreign(err)
		}
		if n != limit-1 {
			return n, nil
		}

		err = l.store.Expire(ctx, key, window)
		if err == nil {
			return n, nil
		}
		if !gferrors.IsNotFound(err) || attempt > 0 {
			return 0, err
		}
	}
}

func (l *Limiter) peek(ctx context.Context, key string, limit int64) (int64, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return limit, nil
	}
	n, err := store.ParseCounter(raw)
	if err != nil {
		return 0, foreign(err)
	}
	return n, nil
}

// foreign reports a non-counter value at the key as store abuse.
func foreign(err error) error {
	if errors.Is(err, store.ErrNotInteger) {
		return fmt.Errorf("fixedwindow: %w: %w", gferrors.ErrStoreAbused, err)
	}
	return err
}
