/*
Package ratelimit defines the admission-control contract shared by the
gateway's rate limiters.

Two limiters implement it:

  - leakybucket: smooth rate with burst tolerance; accepted requests carry a
    delay that keeps the effective rate at the configured value
  - fixedwindow: a fixed quota per time window; accept or reject only

Both keep all per-key state in a shared store.CounterStore and hold nothing
between calls, so a single instance can serve every goroutine of a process
and many processes can share one store.

Commit and rollback:

	res, err := limiter.Incoming(ctx, key, true)
	switch {
	case errors.IsRejected(err):
		// over the limit
	case err != nil:
		// the store failed or holds foreign data
	default:
		time.Sleep(res.Delay)
		if downstreamFailed {
			limiter.Uncommit(ctx, key) // give the capacity back
		}
	}

Passing commit=false asks the same question without recording anything.
Combine uses that to consult several limiters and commit to all of them only
when every one of them accepts.

Concurrency:

Limiters take no locks. The fixed window relies on the store's atomic
increment. The leaky bucket reads, computes and overwrites its record, so
concurrent requests for one key may each act on the same prior state and
the last write wins; under heavy contention a key can briefly exceed its
rate.
*/
package ratelimit
