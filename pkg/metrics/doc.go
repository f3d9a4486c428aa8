// Package metrics provides Prometheus instrumentation for gatelimit components.
//
// # Overview
//
// A Registry owns every collector. Limiters are instrumented by wrapping them
// with ratelimit.NewWithMetrics, and the memory store sweeper reports how many
// keys it reclaims.
//
// # Quick Start
//
//	registry := metrics.NewRegistry(prometheus.NewRegistry())
//	limiter = ratelimit.NewWithMetrics(limiter, "leakybucket", "api", registry)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
//   - gatelimit_ratelimit_requests_total: admission checks, labeled by commit mode
//   - gatelimit_ratelimit_allowed_total: accepted requests
//   - gatelimit_ratelimit_delayed_total: accepted requests with a non-zero delay
//   - gatelimit_ratelimit_denied_total: rejected requests
//   - gatelimit_ratelimit_errors_total: failed checks, labeled by kind
//     ("store_abused", "not_found" or "store")
//   - gatelimit_ratelimit_uncommits_total: rolled back commits
//   - gatelimit_ratelimit_delay_seconds: delay imposed on accepted requests
//   - gatelimit_store_swept_keys_total: expired keys reclaimed by the sweeper
//
// # Labels
//
//   - limiter_type: "leakybucket" or "fixedwindow"
//   - limiter_name: user-provided name for the limiter instance
//
// Per-key values are never used as labels; key cardinality is
// unbounded.
package metrics
