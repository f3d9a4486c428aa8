package store

import (
	"context"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/common/validation"
)

// Sweepable is a store that can reclaim expired entries on demand.
type Sweepable interface {
	Sweep() int
}

// Sweeper runs Sweep on a cron schedule.
type Sweeper struct {
	cron *cron.Cron
}

// NewSweeper schedules target.Sweep using a standard cron spec or a
// descriptor such as "@every 1m". onSweep, if not nil, receives the number
// of entries removed by each run.
func NewSweeper(target Sweepable, schedule string, onSweep func(removed int)) (*Sweeper, error) {
	if err := validation.ValidateNotNil("store.sweeper", "target", target); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("store.sweeper", "schedule", schedule); err != nil {
		return nil, err
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		removed := target.Sweep()
		if onSweep != nil {
			onSweep(removed)
		}
	})
	if err != nil {
		return nil, gferrors.NewValidationError("store.sweeper", "schedule", schedule, err.Error()).
			WithHint("use a cron expression like \"*/5 * * * *\" or \"@every 1m\"")
	}

	return &Sweeper{cron: c}, nil
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule. The returned context is done once any running
// sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
