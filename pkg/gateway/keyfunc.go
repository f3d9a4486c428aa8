package gateway

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc derives the rate limiting key of a request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc keys requests by keyHeader when it is set and present, then
// by the first X-Forwarded-For address if trustXFF is true, and finally by the
// host part of the remote address.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		remote := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return "unknown"
	}
}

// PrefixKeyFunc namespaces the keys produced by fn, so several limiters can
// share one store without colliding.
func PrefixKeyFunc(prefix string, fn KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		return prefix + fn(r)
	}
}
