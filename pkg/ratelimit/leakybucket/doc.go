/*
Package leakybucket provides a leaky bucket rate limiter whose per-key state
lives in a shared store.CounterStore.

Each key owns a backlog measured in milli-requests. The backlog drains at the
configured rate and every request adds one full request to it. While the
backlog stays within the burst the request is accepted, together with the
delay the caller should wait so that traffic leaves at the configured rate.
Beyond the burst the request is rejected.

Basic usage:

	limiter, err := leakybucket.New(counters, 200, 100) // 200 req/s, 100 req/s of burst
	if err != nil {
		log.Fatal(err)
	}

	res, err := limiter.Incoming(ctx, clientIP, true)
	if errors.IsRejected(err) {
		// respond 503
	}
	time.Sleep(res.Delay)

Stored records use a fixed 17-byte, versioned, big-endian layout (see
Record). A value of any other shape at a key is reported as
errors.ErrStoreAbused rather than being overwritten.

Concurrency:

Incoming reads a record, computes and writes it back without locking.
Concurrent requests for the same key may both act on the same prior record;
the last write wins. Reconfiguring with SetRate or SetBurst is likewise
visible to concurrent callers at an unspecified point.
*/
package leakybucket
