/*
Package gateway puts a ratelimit.Limiter in front of an http.Handler.

Every request is keyed (by header, X-Forwarded-For or remote address),
checked with a committing Incoming call and then either passed on, held for
the limiter's delay, or rejected with a configurable status and a
Retry-After header.

	limiter, _ := leakybucket.New(counters, 200, 100)
	h := gateway.Middleware(gateway.Options{
		Limiter:   limiter,
		KeyHeader: "X-Api-Key",
		MaxDelay:  2 * time.Second,
	})(proxy)

Requests that are admitted but never served, because the client went away
during the delay or the upstream failed, can be given back to the limiter
with Uncommit so they do not count against the client.
*/
package gateway
