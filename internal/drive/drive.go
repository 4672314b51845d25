package drive

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/swervedrive/internal/config"
	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/monitoring"
	"github.com/banshee-data/swervedrive/internal/odometry"
	"github.com/banshee-data/swervedrive/internal/swerve"
	"github.com/banshee-data/swervedrive/internal/timeutil"
)

// ErrNoFeedback is returned by ResetPose when a module has never produced a
// sample, so there is no position to re-baseline odometry on.
var ErrNoFeedback = errors.New("no module feedback yet")

// Counter names exposed through Stats.
const (
	StatCycles           = "cycles"
	StatCommandsApplied  = "commands_applied"
	StatSaturatedCycles  = "saturated_cycles"
	StatStaleHeading     = "stale_heading_samples"
	StatStaleModule      = "stale_module_samples"
	StatDispatchFailures = "dispatch_failures"
	StatOverruns         = "loop_overruns"
	StatPoseResets       = "pose_resets"
)

// Options configures a Drive.
type Options struct {
	Geometry       swerve.ModuleGeometry
	MaxModuleSpeed float64       // m/s
	Period         time.Duration // control cycle period

	// DiscretizeMeasuredPeriod discretizes commands over the measured time
	// since the previous applied command instead of Period.
	DiscretizeMeasuredPeriod bool
}

// OptionsFromConfig builds Options from a loaded DriveConfig.
func OptionsFromConfig(cfg *config.DriveConfig) Options {
	return Options{
		Geometry:                 cfg.GetModuleGeometry(),
		MaxModuleSpeed:           cfg.GetMaxModuleSpeed(),
		Period:                   cfg.GetControlPeriod(),
		DiscretizeMeasuredPeriod: cfg.GetDiscretizeMeasuredPeriod(),
	}
}

// Validate checks the options before a Drive is built from them.
func (o Options) Validate() error {
	if o.MaxModuleSpeed <= 0 {
		return fmt.Errorf("max module speed must be positive, got %f", o.MaxModuleSpeed)
	}
	if o.Period <= 0 {
		return fmt.Errorf("control period must be positive, got %v", o.Period)
	}
	return nil
}

// Snapshot is the immutable view of the drivetrain published at the end of
// each cycle. Readers between cycles always see one whole snapshot.
type Snapshot struct {
	Cycle uint64    `json:"cycle"`
	Time  time.Time `json:"time"`

	Pose geom.Pose2D `json:"pose"`
	// Velocity is the robot-relative chassis velocity recovered from the
	// measured module states.
	Velocity swerve.ChassisVelocity `json:"velocity"`

	Measured [swerve.NumModules]swerve.ModuleState `json:"measured"`
	Targets  [swerve.NumModules]swerve.ModuleState `json:"targets"`

	// CommandApplied is set when this cycle consumed a new command; Command is
	// that command, robot-relative and before discretization.
	CommandApplied bool                   `json:"command_applied"`
	Command        swerve.ChassisVelocity `json:"command"`
	Saturated      bool                   `json:"saturated"`

	StaleHeading bool                     `json:"stale_heading"`
	StaleModules [swerve.NumModules]bool `json:"stale_modules"`
}

// Drive is the swerve drive coordinator.
type Drive struct {
	opts    Options
	kin     *swerve.Kinematics
	odo     *odometry.Integrator
	gyro    HeadingSensor
	modules [swerve.NumModules]Module
	clock   timeutil.Clock
	stats   *monitoring.Counters

	observer Observer

	// mu serializes Update and ResetPose. Everything below it up to cmdMu is
	// owned by whoever holds mu.
	mu            sync.Mutex
	heading       geom.Rotation
	headingSeen   bool
	positions     [swerve.NumModules]swerve.ModulePosition
	states        [swerve.NumModules]swerve.ModuleState
	moduleSeen    [swerve.NumModules]bool
	targets       [swerve.NumModules]swerve.ModuleState
	cycle         uint64
	lastAppliedAt time.Time

	// cmdMu guards the single latest-wins command slot so that callers never
	// wait for a cycle to finish.
	cmdMu   sync.Mutex
	pending *swerve.ChassisVelocity

	snap atomic.Pointer[Snapshot]
}

// New builds a coordinator over gyro and modules. Odometry starts at the
// origin and baselines on the first Update.
func New(opts Options, gyro HeadingSensor, modules [swerve.NumModules]Module, clock timeutil.Clock) (*Drive, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if gyro == nil {
		return nil, errors.New("heading sensor is required")
	}
	for i, m := range modules {
		if m == nil {
			return nil, fmt.Errorf("module %s is nil", swerve.ModuleName(i))
		}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	kin, err := swerve.NewKinematics(opts.Geometry)
	if err != nil {
		return nil, fmt.Errorf("building kinematics: %w", err)
	}

	d := &Drive{
		opts:    opts,
		kin:     kin,
		odo:     odometry.New(kin),
		gyro:    gyro,
		modules: modules,
		clock:   clock,
		stats:   monitoring.NewCounters(),
	}
	d.snap.Store(&Snapshot{Time: clock.Now()})
	return d, nil
}

// SetObserver registers o to receive every published snapshot. Call before
// the control loop starts.
func (d *Drive) SetObserver(o Observer) {
	d.observer = o
}

// Kinematics returns the kinematics the coordinator uses.
func (d *Drive) Kinematics() *swerve.Kinematics {
	return d.kin
}

// Snapshot returns the most recently published snapshot.
func (d *Drive) Snapshot() Snapshot {
	return *d.snap.Load()
}

// Pose returns the most recently published pose estimate.
func (d *Drive) Pose() geom.Pose2D {
	return d.snap.Load().Pose
}

// CurrentVelocity returns the robot-relative chassis velocity recovered by
// inverse kinematics from the most recent module states.
func (d *Drive) CurrentVelocity() swerve.ChassisVelocity {
	return d.snap.Load().Velocity
}

// Stats returns a copy of the diagnostic counters.
func (d *Drive) Stats() map[string]uint64 {
	return d.stats.Snapshot()
}

// DriveRobotRelative replaces any pending command with v. The next Update
// applies it; a command that is overwritten before then is dropped.
func (d *Drive) DriveRobotRelative(v swerve.ChassisVelocity) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	d.pending = &v
}

// DriveFieldRelative converts v into the robot frame using the current
// heading and hands it to DriveRobotRelative.
func (d *Drive) DriveFieldRelative(v swerve.ChassisVelocity) {
	d.DriveRobotRelative(swerve.FieldToRobot(v, d.Pose().Heading()))
}

// Stop commands zero velocity. Modules keep their angles.
func (d *Drive) Stop() {
	d.DriveRobotRelative(swerve.ChassisVelocity{})
}

// Pending returns the command waiting for the next cycle, if any.
func (d *Drive) Pending() (swerve.ChassisVelocity, bool) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	if d.pending == nil {
		return swerve.ChassisVelocity{}, false
	}
	return *d.pending, true
}

func (d *Drive) takeCommand() (swerve.ChassisVelocity, bool) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	if d.pending == nil {
		return swerve.ChassisVelocity{}, false
	}
	v := *d.pending
	d.pending = nil
	return v, true
}

// Update runs one control cycle and returns the snapshot it published.
func (d *Drive) Update() Snapshot {
	snap := d.update()
	if d.observer != nil {
		d.observer.ObserveCycle(snap)
	}
	return snap
}

func (d *Drive) update() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cycle++
	d.stats.Inc(StatCycles)
	snap := Snapshot{Cycle: d.cycle, Time: d.clock.Now()}

	snap.StaleHeading = !d.senseHeading()
	for i := range d.modules {
		snap.StaleModules[i] = !d.senseModule(i)
	}

	pose := d.Pose()
	if d.allSeen() {
		pose = d.odo.Update(d.heading, d.positions)
	}
	snap.Pose = pose
	snap.Measured = d.states
	snap.Velocity = d.kin.Inverse(d.states)

	if cmd, ok := d.takeCommand(); ok {
		snap.CommandApplied = true
		snap.Command = cmd
		snap.Saturated = d.apply(cmd, snap.Time)
	}
	snap.Targets = d.targets

	d.snap.Store(&snap)
	tracef("cycle=%d pose=(%.3f, %.3f, %.1fdeg) v=(%.2f, %.2f, %.2f)",
		snap.Cycle, pose.X(), pose.Y(), pose.Heading().Degrees(),
		snap.Velocity.VX, snap.Velocity.VY, snap.Velocity.Omega)
	return snap
}

// senseHeading refreshes the heading, holding the previous value on error.
func (d *Drive) senseHeading() bool {
	h, err := d.gyro.Heading()
	if err != nil {
		d.stats.Inc(StatStaleHeading)
		opsf("heading read failed on cycle %d, holding %.1fdeg: %v", d.cycle, d.heading.Degrees(), err)
		return false
	}
	d.heading = h
	d.headingSeen = true
	return true
}

// senseModule refreshes module i, holding its previous sample on error.
func (d *Drive) senseModule(i int) bool {
	pos, st, err := readModule(d.modules[i])
	if err == nil {
		d.positions[i] = pos
		d.states[i] = st
		d.moduleSeen[i] = true
		return true
	}
	d.stats.Inc(StatStaleModule)
	opsf("%s feedback failed on cycle %d, holding previous sample: %v", swerve.ModuleName(i), d.cycle, err)
	return false
}

func readModule(m Module) (swerve.ModulePosition, swerve.ModuleState, error) {
	if s, ok := m.(Sampler); ok {
		return s.Sample()
	}
	pos, err := m.Position()
	if err != nil {
		return swerve.ModulePosition{}, swerve.ModuleState{}, err
	}
	st, err := m.State()
	if err != nil {
		return swerve.ModulePosition{}, swerve.ModuleState{}, err
	}
	return pos, st, nil
}

func (d *Drive) allSeen() bool {
	if !d.headingSeen {
		return false
	}
	for _, seen := range d.moduleSeen {
		if !seen {
			return false
		}
	}
	return true
}

// apply turns a robot-relative command into module targets and dispatches
// them. It reports whether the targets had to be desaturated.
func (d *Drive) apply(cmd swerve.ChassisVelocity, now time.Time) bool {
	dt := d.discretizationPeriod(now)
	d.lastAppliedAt = now

	var current [swerve.NumModules]geom.Rotation
	for i, s := range d.states {
		current[i] = s.Angle
	}

	targets := d.kin.Forward(swerve.Discretize(cmd, dt.Seconds()), current)
	targets, saturated := swerve.Desaturate(targets, d.opts.MaxModuleSpeed)
	targets = swerve.OptimizeAll(targets, current)

	if saturated {
		d.stats.Inc(StatSaturatedCycles)
		diagf("cycle %d: command (%.2f, %.2f, %.2f) saturated, scaled to %.2f m/s",
			d.cycle, cmd.VX, cmd.VY, cmd.Omega, d.opts.MaxModuleSpeed)
	}

	for i, m := range d.modules {
		if err := m.SetTarget(targets[i]); err != nil {
			d.stats.Inc(StatDispatchFailures)
			opsf("%s dispatch failed on cycle %d: %v", swerve.ModuleName(i), d.cycle, err)
		}
	}
	d.targets = targets
	d.stats.Inc(StatCommandsApplied)
	return saturated
}

// discretizationPeriod returns the horizon a command is assumed to be held
// for. With measured periods enabled it is the time since the previous
// applied command, clamped to [Period/2, 2*Period].
func (d *Drive) discretizationPeriod(now time.Time) time.Duration {
	if !d.opts.DiscretizeMeasuredPeriod || d.lastAppliedAt.IsZero() {
		return d.opts.Period
	}
	measured := now.Sub(d.lastAppliedAt)
	if lo := d.opts.Period / 2; measured < lo {
		return lo
	}
	if hi := 2 * d.opts.Period; measured > hi {
		return hi
	}
	return measured
}

// ResetPose moves the pose estimate to pose. The heading sensor is reset to
// pose's heading and odometry is re-baselined on fresh module positions, all
// under the cycle lock, so no cycle can observe one without the other.
func (d *Drive) ResetPose(pose geom.Pose2D) error {
	snap, err := d.resetPose(pose)
	if err != nil {
		return err
	}
	if d.observer != nil {
		d.observer.ObserveCycle(snap)
	}
	return nil
}

func (d *Drive) resetPose(pose geom.Pose2D) (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.modules {
		d.senseModule(i)
	}
	for i, seen := range d.moduleSeen {
		if !seen {
			return Snapshot{}, fmt.Errorf("resetting pose: %s: %w", swerve.ModuleName(i), ErrNoFeedback)
		}
	}

	if err := d.gyro.ResetHeading(pose.Heading()); err != nil {
		return Snapshot{}, fmt.Errorf("resetting heading sensor: %w", err)
	}
	if !d.senseHeading() {
		// The sensor was just told to read this.
		d.heading = pose.Heading()
		d.headingSeen = true
	}

	d.odo.Reset(d.heading, d.positions, pose)
	d.stats.Inc(StatPoseResets)
	diagf("pose reset to (%.3f, %.3f, %.1fdeg)", pose.X(), pose.Y(), pose.Heading().Degrees())

	prev := d.snap.Load()
	snap := *prev
	snap.Time = d.clock.Now()
	snap.Pose = d.odo.Pose()
	snap.CommandApplied = false
	snap.Saturated = false
	d.snap.Store(&snap)
	return snap, nil
}
