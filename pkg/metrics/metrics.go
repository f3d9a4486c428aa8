// Package metrics provides Prometheus instrumentation for gatelimit components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "gatelimit"

// Registry holds all metric instances for gatelimit components.
type Registry struct {
	// Admission decisions
	RateLimitRequests  *prometheus.CounterVec
	RateLimitAllowed   *prometheus.CounterVec
	RateLimitDelayed   *prometheus.CounterVec
	RateLimitDenied    *prometheus.CounterVec
	RateLimitErrors    *prometheus.CounterVec
	RateLimitUncommits *prometheus.CounterVec
	RateLimitDelay     *prometheus.HistogramVec

	// Store maintenance
	StoreSweptKeys prometheus.Counter
}

// DefaultRegistry is the default metrics registry used by gatelimit components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// Registering two Registries on the same registerer panics; share one instead.
func NewRegistry(reg prometheus.Registerer) *Registry {
	config := DefaultConfig()
	config.Registry = reg
	return NewRegistryWithConfig(config)
}

// NewRegistryWithConfig creates a registry honoring config.Namespace and
// config.Enabled.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(nil)
	if config.Enabled {
		factory = promauto.With(reg)
	}
	limiterLabels := []string{"limiter_type", "limiter_name"}

	return &Registry{
		RateLimitRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "requests_total",
				Help:      "Total number of admission checks",
			},
			append(limiterLabels, "commit"),
		),

		RateLimitAllowed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "allowed_total",
				Help:      "Total number of accepted requests",
			},
			limiterLabels,
		),

		RateLimitDelayed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "delayed_total",
				Help:      "Total number of accepted requests that carry a delay",
			},
			limiterLabels,
		),

		RateLimitDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "denied_total",
				Help:      "Total number of rejected requests",
			},
			limiterLabels,
		),

		RateLimitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "errors_total",
				Help:      "Total number of admission checks that failed",
			},
			append(limiterLabels, "kind"),
		),

		RateLimitUncommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "uncommits_total",
				Help:      "Total number of rolled back commits",
			},
			limiterLabels,
		),

		RateLimitDelay: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "ratelimit",
				Name:      "delay_seconds",
				Help:      "Delay imposed on accepted requests",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			limiterLabels,
		),

		StoreSweptKeys: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "store",
				Name:      "swept_keys_total",
				Help:      "Total number of expired keys reclaimed by the sweeper",
			},
		),
	}
}
