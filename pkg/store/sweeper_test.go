package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/gatelimit/internal/testutil"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
)

type countingSweepable struct {
	runs int32
}

func (c *countingSweepable) Sweep() int {
	return int(atomic.AddInt32(&c.runs, 1))
}

func TestSweeper(t *testing.T) {
	target := &countingSweepable{}
	var reported int32

	sweeper, err := NewSweeper(target, "@every 1s", func(removed int) {
		atomic.StoreInt32(&reported, int32(removed))
	})
	testutil.AssertNoError(t, err)

	sweeper.Start()
	testutil.Eventually(t, func() bool {
		return atomic.LoadInt32(&reported) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	<-sweeper.Stop().Done()
}

func TestNewSweeper_Validation(t *testing.T) {
	tests := []struct {
		name     string
		target   Sweepable
		schedule string
	}{
		{"nil target", nil, "@every 1m"},
		{"empty schedule", NewMemoryStore(), ""},
		{"bad schedule", NewMemoryStore(), "every now and then"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSweeper(tt.target, tt.schedule, nil)
			if !gferrors.IsValidationError(err) {
				t.Errorf("got %v, want ValidationError", err)
			}
		})
	}
}
