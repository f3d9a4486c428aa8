/*
Package gatelimit provides request rate admission control for traffic
gateways. Limiter state lives in a shared counter store, so any number of
gateway processes can enforce one budget per client.

Rate Limiting (pkg/ratelimit):
  - leakybucket: Smooth limiting with a burst tolerance; accepted requests carry a delay
  - fixedwindow: A fixed quota per key and window; requests are accepted or rejected
  - Combine: One request checked against several limiters, committed to all or none
  - MetricsLimiter: Prometheus instrumentation around any limiter

Counter Stores (pkg/store):
  - MemoryStore: In-process store, swept on a cron schedule by Sweeper
  - RedisStore: Shared store on Redis with atomic seeded increments
  - MongoStore: Shared store on a MongoDB collection with a TTL index

HTTP (pkg/gateway):
  - Middleware: Keys requests, applies delays and rejections, gives back
    capacity for requests that were never served

Example usage:

	import (
		"github.com/vnykmshr/gatelimit/pkg/ratelimit/leakybucket"
		"github.com/vnykmshr/gatelimit/pkg/store"
	)

	limiter, _ := leakybucket.New(store.NewMemoryStore(), 10, 20) // 10 req/s, 20 req/s of burst

	res, err := limiter.Incoming(ctx, clientIP, true)
	if errors.IsRejected(err) {
		// respond 503
	}
	time.Sleep(res.Delay)

See the package documentation of each module for details.
*/
package gatelimit
