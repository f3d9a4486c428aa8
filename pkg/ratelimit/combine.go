package ratelimit

import (
	"context"
	"errors"
	"time"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
)

// Combine admits one request against several limiters at once, checking
// keys[i] against limiters[i]. The request is committed to every limiter or
// to none of them.
//
// All but the last limiter are first consulted without committing, then the
// last one commits. Only when all of them accept are the others committed;
// if one of those commits is rejected after all (another request got there
// first), every commit made so far is rolled back with Uncommit.
//
// On success Combine returns the largest delay of all limiters together with
// each limiter's result. A rejection is reported as errors.ErrRejected; rollback
// failures are joined to the returned error.
func Combine(ctx context.Context, limiters []Limiter, keys []string) (time.Duration, []Result, error) {
	if len(limiters) != len(keys) {
		return 0, nil, gferrors.NewValidationError("ratelimit", "keys", len(keys), "must match the number of limiters").
			WithHint("pass one key per limiter")
	}
	n := len(limiters)
	if n == 0 {
		return 0, nil, nil
	}

	results := make([]Result, n)
	var maxDelay time.Duration

	for i, lim := range limiters {
		last := i == n-1
		res, err := lim.Incoming(ctx, keys[i], last)
		if err != nil {
			return 0, nil, err
		}
		if last {
			results[i] = res
			maxDelay = max(maxDelay, res.Delay)
		}
	}

	for i := 0; i < n-1; i++ {
		res, err := limiters[i].Incoming(ctx, keys[i], true)
		if err != nil {
			errs := []error{err}
			for j := 0; j < i; j++ {
				if _, uerr := limiters[j].Uncommit(ctx, keys[j]); uerr != nil {
					errs = append(errs, uerr)
				}
			}
			if _, uerr := limiters[n-1].Uncommit(ctx, keys[n-1]); uerr != nil {
				errs = append(errs, uerr)
			}
			return 0, nil, errors.Join(errs...)
		}
		results[i] = res
		maxDelay = max(maxDelay, res.Delay)
	}

	return maxDelay, results, nil
}
