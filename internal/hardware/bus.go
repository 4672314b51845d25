// Package hardware talks to the drivetrain's motor controller board over a
// serial line and presents its modules and gyro to the drive coordinator.
//
// The board streams one JSON object per line for every module, the gyro and
// the operator sticks. The bus keeps the newest sample of each; a sample
// older than the stale limit reads as an error so the coordinator holds its
// previous value instead of acting on a dead link.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/monitoring"
	"github.com/banshee-data/swervedrive/internal/serialmux"
	"github.com/banshee-data/swervedrive/internal/swerve"
	"github.com/banshee-data/swervedrive/internal/teleop"
	"github.com/banshee-data/swervedrive/internal/timeutil"
)

var (
	// ErrStaleSample is returned when the newest sample is older than the
	// stale limit, or no sample has arrived yet.
	ErrStaleSample = errors.New("stale sample")
	// ErrUnknownModule is returned for module ids outside the drivetrain.
	ErrUnknownModule = errors.New("unknown module")
)

// Counter names exposed through Stats.
const (
	StatLines        = "lines"
	StatBadLines     = "bad_lines"
	StatWriteErrors  = "write_errors"
	StatDroppedAxes  = "dropped_axes"
	StatStaleReads   = "stale_reads"
	StatGyroResets   = "gyro_resets"
	StatPreResetGyro = "pre_reset_gyro"
	StatTargetWrites = "target_writes"
)

type moduleSample struct {
	position swerve.ModulePosition
	state    swerve.ModuleState
	at       time.Time
}

type gyroSample struct {
	heading geom.Rotation
	at      time.Time
}

// Bus is the host side of the motor controller link.
type Bus struct {
	mux        serialmux.SerialMuxInterface
	clock      timeutil.Clock
	staleAfter time.Duration
	stats      *monitoring.Counters

	subID string
	lines chan string
	axes  chan teleop.Axes

	mu       sync.RWMutex
	modules  [swerve.NumModules]moduleSample
	gyro     gyroSample
	resetSeq uint64 // sequence of the last gyro reset sent

	resetMu sync.Mutex

	handles [swerve.NumModules]*Module
}

// NewBus subscribes to mux. Lines are buffered by the mux until Run starts
// consuming them.
func NewBus(mux serialmux.SerialMuxInterface, clock timeutil.Clock, staleAfter time.Duration) (*Bus, error) {
	if mux == nil {
		return nil, errors.New("serial mux is required")
	}
	if staleAfter <= 0 {
		return nil, fmt.Errorf("stale limit must be positive, got %v", staleAfter)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	b := &Bus{
		mux:        mux,
		clock:      clock,
		staleAfter: staleAfter,
		stats:      monitoring.NewCounters(),
		axes:       make(chan teleop.Axes, 1),
	}
	b.subID, b.lines = mux.Subscribe()
	for i := range b.handles {
		b.handles[i] = &Module{bus: b, id: i}
	}
	return b, nil
}

// Hello asks the board to start streaming.
func (b *Bus) Hello() error {
	return b.send(CommandHello)
}

// Run consumes feedback lines until ctx is done or the mux closes the
// subscription. It closes the axes channel on return.
func (b *Bus) Run(ctx context.Context) error {
	defer close(b.axes)
	diagf("bus started, stale after %v", b.staleAfter)
	for {
		select {
		case <-ctx.Done():
			b.mux.Unsubscribe(b.subID)
			return ctx.Err()
		case raw, ok := <-b.lines:
			if !ok {
				diagf("serial subscription closed")
				return nil
			}
			b.handleLine(raw)
		}
	}
}

func (b *Bus) handleLine(raw string) {
	// Counted last so a reader that sees the count also sees the sample.
	defer b.stats.Inc(StatLines)
	tracef("rx %s", raw)

	l, err := ParseLine(raw)
	if err != nil {
		b.stats.Inc(StatBadLines)
		opsf("dropping line: %v", err)
		return
	}
	now := b.clock.Now()

	switch l.Type {
	case LineTypeModule:
		angle := geom.FromRadians(l.Angle)
		b.mu.Lock()
		b.modules[*l.ID] = moduleSample{
			position: swerve.ModulePosition{Distance: l.Distance, Angle: angle},
			state:    swerve.ModuleState{Speed: l.Speed, Angle: angle},
			at:       now,
		}
		b.mu.Unlock()
	case LineTypeGyro:
		b.mu.Lock()
		if l.ResetSeq < b.resetSeq {
			b.mu.Unlock()
			// Read before the board applied our latest reset.
			b.stats.Inc(StatPreResetGyro)
			diagf("dropping gyro line from reset %d, expecting %d", l.ResetSeq, b.resetSeq)
			return
		}
		b.gyro = gyroSample{heading: geom.FromRadians(l.Heading), at: now}
		b.mu.Unlock()
	case LineTypeAxes:
		a := teleop.Axes{X: l.X, Y: l.Y, Rot: l.Rot}
		// Latest wins: replace an unread sample rather than block the reader.
		select {
		case b.axes <- a:
		default:
			select {
			case <-b.axes:
				b.stats.Inc(StatDroppedAxes)
			default:
			}
			select {
			case b.axes <- a:
			default:
				b.stats.Inc(StatDroppedAxes)
			}
		}
	}
}

// Axes returns operator input forwarded from the board. Only the newest
// unread sample is kept.
func (b *Bus) Axes() <-chan teleop.Axes {
	return b.axes
}

// Module returns the handle for module id.
func (b *Bus) Module(id int) (*Module, error) {
	if id < 0 || id >= swerve.NumModules {
		return nil, fmt.Errorf("module %d: %w", id, ErrUnknownModule)
	}
	return b.handles[id], nil
}

// Modules returns every module handle in index order.
func (b *Bus) Modules() [swerve.NumModules]*Module {
	return b.handles
}

// Gyro returns the heading sensor handle.
func (b *Bus) Gyro() *Gyro {
	return &Gyro{bus: b}
}

// Stats returns a copy of the bus counters.
func (b *Bus) Stats() map[string]uint64 {
	return b.stats.Snapshot()
}

func (b *Bus) fresh(at time.Time) bool {
	return !at.IsZero() && b.clock.Since(at) <= b.staleAfter
}

func (b *Bus) module(id int) (moduleSample, error) {
	b.mu.RLock()
	s := b.modules[id]
	b.mu.RUnlock()
	if !b.fresh(s.at) {
		b.stats.Inc(StatStaleReads)
		return moduleSample{}, fmt.Errorf("%s: %w", swerve.ModuleName(id), ErrStaleSample)
	}
	return s, nil
}

func (b *Bus) send(cmd string) error {
	if err := b.mux.SendCommand(cmd); err != nil {
		b.stats.Inc(StatWriteErrors)
		opsf("write %q failed: %v", cmd, err)
		return fmt.Errorf("sending %q: %w", cmd, err)
	}
	return nil
}

// Module is one swerve module on the board.
type Module struct {
	bus *Bus
	id  int
}

// Position returns the newest distance and angle.
func (m *Module) Position() (swerve.ModulePosition, error) {
	s, err := m.bus.module(m.id)
	if err != nil {
		return swerve.ModulePosition{}, err
	}
	return s.position, nil
}

// State returns the newest speed and angle.
func (m *Module) State() (swerve.ModuleState, error) {
	s, err := m.bus.module(m.id)
	if err != nil {
		return swerve.ModuleState{}, err
	}
	return s.state, nil
}

// Sample returns the newest distance, speed and angle, all from the same
// feedback line.
func (m *Module) Sample() (swerve.ModulePosition, swerve.ModuleState, error) {
	s, err := m.bus.module(m.id)
	if err != nil {
		return swerve.ModulePosition{}, swerve.ModuleState{}, err
	}
	return s.position, s.state, nil
}

// SetTarget sends the module's target to the board.
func (m *Module) SetTarget(target swerve.ModuleState) error {
	if err := m.bus.send(FormatTarget(m.id, target)); err != nil {
		return err
	}
	m.bus.stats.Inc(StatTargetWrites)
	return nil
}

// Gyro is the board's heading sensor.
type Gyro struct {
	bus *Bus
}

// Heading returns the newest heading.
func (g *Gyro) Heading() (geom.Rotation, error) {
	g.bus.mu.RLock()
	s := g.bus.gyro
	g.bus.mu.RUnlock()
	if !g.bus.fresh(s.at) {
		g.bus.stats.Inc(StatStaleReads)
		return geom.Rotation{}, fmt.Errorf("gyro: %w", ErrStaleSample)
	}
	return s.heading, nil
}

// ResetHeading tells the board to read heading from now on. Gyro lines the
// board sent before applying the reset may still be queued on the link; they
// carry an older reset_seq and are dropped, so the cached heading stays at
// heading until the board reports again.
func (g *Gyro) ResetHeading(heading geom.Rotation) error {
	b := g.bus
	b.resetMu.Lock()
	defer b.resetMu.Unlock()

	b.mu.RLock()
	seq := b.resetSeq + 1
	b.mu.RUnlock()

	if err := b.send(FormatGyroReset(seq, heading)); err != nil {
		return err
	}
	b.mu.Lock()
	b.resetSeq = seq
	b.gyro = gyroSample{heading: heading, at: b.clock.Now()}
	b.mu.Unlock()
	b.stats.Inc(StatGyroResets)
	diagf("gyro reset %d to %.1fdeg", seq, heading.Degrees())
	return nil
}
