/*
Package fixedwindow provides a fixed window counter limiter whose per-key
counters live in a shared store.CounterStore.

The first committed request for a key seeds a counter with the limit,
decrements it and starts the window by attaching an expiry of one window.
Every further commit decrements the same counter until it expires; requests
that take it below zero are rejected. Windows are anchored at each key's first
request, not at wall-clock boundaries.

	limiter, err := fixedwindow.New(counters, 100, time.Minute)
	if err != nil {
		log.Fatal(err)
	}

	res, err := limiter.Incoming(ctx, apiKey, true)
	switch {
	case errors.IsRejected(err):
		// respond 429
	case err != nil:
		// store failure
	default:
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	}

The decrement and the expiry are two store calls. When the counter expires in
between, the expiry finds no key; Incoming then repeats both steps once before
giving up.
*/
package fixedwindow
