package ratelimit

import (
	"context"
	"strconv"
	"sync/atomic"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter     Limiter
	limiterType string
	name        string
	registry    atomic.Pointer[metrics.Registry]
	enabled     atomic.Bool
}

// NewWithMetrics wraps limiter so every decision is recorded in registry under
// the given type and name labels. A nil registry uses metrics.DefaultRegistry.
func NewWithMetrics(limiter Limiter, limiterType, name string, registry *metrics.Registry) *MetricsLimiter {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}

	ml := &MetricsLimiter{
		limiter:     limiter,
		limiterType: limiterType,
		name:        name,
	}
	ml.registry.Store(registry)
	ml.enabled.Store(true)
	return ml
}

// Incoming checks a request and records the outcome.
func (ml *MetricsLimiter) Incoming(ctx context.Context, key string, commit bool) (Result, error) {
	res, err := ml.limiter.Incoming(ctx, key, commit)
	if !ml.enabled.Load() {
		return res, err
	}

	reg := ml.registry.Load()
	reg.RateLimitRequests.WithLabelValues(ml.limiterType, ml.name, strconv.FormatBool(commit)).Inc()

	switch {
	case gferrors.IsRejected(err):
		reg.RateLimitDenied.WithLabelValues(ml.limiterType, ml.name).Inc()
	case err != nil:
		reg.RateLimitErrors.WithLabelValues(ml.limiterType, ml.name, errorKind(err)).Inc()
	default:
		reg.RateLimitAllowed.WithLabelValues(ml.limiterType, ml.name).Inc()
		if res.Delay > 0 {
			reg.RateLimitDelayed.WithLabelValues(ml.limiterType, ml.name).Inc()
		}
		reg.RateLimitDelay.WithLabelValues(ml.limiterType, ml.name).Observe(res.Delay.Seconds())
	}

	return res, err
}

// Uncommit rolls back one commit and records the outcome.
func (ml *MetricsLimiter) Uncommit(ctx context.Context, key string) (Result, error) {
	res, err := ml.limiter.Uncommit(ctx, key)
	if !ml.enabled.Load() {
		return res, err
	}

	reg := ml.registry.Load()
	if err != nil {
		reg.RateLimitErrors.WithLabelValues(ml.limiterType, ml.name, errorKind(err)).Inc()
	} else {
		reg.RateLimitUncommits.WithLabelValues(ml.limiterType, ml.name).Inc()
	}
	return res, err
}

// Unwrap returns the instrumented limiter.
func (ml *MetricsLimiter) Unwrap() Limiter {
	return ml.limiter
}

// EnableMetrics enables metrics collection, switching to registry if it is not nil.
func (ml *MetricsLimiter) EnableMetrics(registry *metrics.Registry) {
	if registry != nil {
		ml.registry.Store(registry)
	}
	ml.enabled.Store(true)
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled.Load()
}

func errorKind(err error) string {
	switch {
	case gferrors.IsStoreAbused(err):
		return "store_abused"
	case gferrors.IsNotFound(err):
		return "not_found"
	case gferrors.IsRetryable(err):
		return "timeout"
	default:
		return "store"
	}
}

var _ metrics.Instrumentable = (*MetricsLimiter)(nil)
