package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Incoming checks a request for key. When commit is true an accepted
	// request is recorded against the key's capacity. A rejection is
	// reported as errors.ErrRejected; any other error comes from the store.
	Incoming(ctx context.Context, key string, commit bool) (Result, error)

	// Uncommit gives back the capacity recorded by one committed Incoming call.
	Uncommit(ctx context.Context, key string) (Result, error)
}

// Result describes an accepted request.
type Result struct {
	// Delay is how long the caller should hold the request before serving it.
	Delay time.Duration

	// Excess is the leaky bucket backlog in requests, including this one.
	Excess float64

	// Remaining is the fixed window quota left after this request.
	Remaining int64
}
