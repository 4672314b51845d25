package drive

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/banshee-data/swervedrive/internal/timeutil"
)

// Loop drives a Drive at a fixed period. It owns the only goroutine that
// calls Update; everything else talks to the Drive through commands, pose
// resets, and published snapshots.
type Loop struct {
	Drive  *Drive
	Clock  timeutil.Clock
	Period time.Duration

	// BeforeCycle, if set, runs before each Update with the time since the
	// previous tick. The simulator uses it to advance its physics.
	BeforeCycle func(dt time.Duration)

	cycles atomic.Uint64
}

// NewLoop returns a loop running d at d's configured period on clock.
func NewLoop(d *Drive, clock timeutil.Clock) *Loop {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Loop{Drive: d, Clock: clock, Period: d.opts.Period}
}

// Cycles returns the number of cycles completed by Run.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Run ticks until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l.Drive == nil {
		return errors.New("loop has no drive")
	}
	if l.Period <= 0 {
		return errors.New("loop period must be positive")
	}

	ticker := l.Clock.NewTicker(l.Period)
	defer ticker.Stop()

	diagf("control loop started, period %v", l.Period)
	defer diagf("control loop stopped after %d cycles", l.Cycles())

	last := l.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			dt := now.Sub(last)
			last = now

			start := l.Clock.Now()
			if l.BeforeCycle != nil {
				l.BeforeCycle(dt)
			}
			l.Drive.Update()

			if took := l.Clock.Since(start); took > l.Period {
				l.Drive.stats.Inc(StatOverruns)
				opsf("cycle took %v, longer than the %v period", took, l.Period)
			}
			l.cycles.Add(1)
		}
	}
}
