package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryWithConfig_Disabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := NewRegistryWithConfig(Config{Enabled: false, Registry: reg})

	registry.RateLimitAllowed.WithLabelValues("fixedwindow", "api").Inc()
	registry.StoreSweptKeys.Add(2)

	if got := testutil.ToFloat64(registry.StoreSweptKeys); got != 2 {
		t.Errorf("StoreSweptKeys = %v, want 2", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("disabled registry exported %d metric families, want 0", len(families))
	}

	// A disabled registry does not claim the names, so an enabled one still fits.
	NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

func TestNewRegistry_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := NewRegistry(reg)
	registry.RateLimitAllowed.WithLabelValues("leakybucket", "edge").Inc()

	n, err := testutil.GatherAndCount(reg, "gatelimit_ratelimit_allowed_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d series, want 1", n)
	}
}
