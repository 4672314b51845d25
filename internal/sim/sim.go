// Package sim provides a simulated drivetrain: four modules and a gyro that
// hold ideal state and integrate it forward in fixed steps.
//
// Modules steer instantly and reach their commanded speed instantly. The gyro
// integrates the angular velocity recovered from the module states, so the
// simulated heading is consistent with what the kinematics believe.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// ErrInjected is returned by reads that were told to fail.
var ErrInjected = errors.New("injected sensor fault")

// Module is a simulated swerve module.
type Module struct {
	mu       sync.Mutex
	state    swerve.ModuleState
	distance float64
	failures int
}

// SetTarget optimizes target against the module's current angle and makes
// it the module's state.
func (m *Module) SetTarget(target swerve.ModuleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = swerve.Optimize(target, m.state.Angle)
	return nil
}

// Position returns the running distance and current angle.
func (m *Module) Position() (swerve.ModulePosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.consumeFailure(); err != nil {
		return swerve.ModulePosition{}, err
	}
	return swerve.ModulePosition{Distance: m.distance, Angle: m.state.Angle}, nil
}

// State returns the current speed and angle.
func (m *Module) State() (swerve.ModuleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// FailNextReads makes the next n Position calls fail.
func (m *Module) FailNextReads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

func (m *Module) consumeFailure() error {
	if m.failures > 0 {
		m.failures--
		return ErrInjected
	}
	return nil
}

func (m *Module) advance(dt float64) swerve.ModuleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distance += m.state.Speed * dt
	return m.state
}

// Gyro is a simulated heading sensor.
type Gyro struct {
	mu       sync.Mutex
	heading  geom.Rotation
	failures int
}

// Heading returns the simulated heading.
func (g *Gyro) Heading() (geom.Rotation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures > 0 {
		g.failures--
		return geom.Rotation{}, ErrInjected
	}
	return g.heading, nil
}

// ResetHeading sets the simulated heading.
func (g *Gyro) ResetHeading(heading geom.Rotation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.heading = heading
	return nil
}

// FailNextReads makes the next n Heading calls fail.
func (g *Gyro) FailNextReads(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = n
}

func (g *Gyro) rotate(by float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.heading = g.heading.Plus(geom.FromRadians(by))
}

// Drivetrain ties four modules and a gyro to one kinematics model.
type Drivetrain struct {
	kin     *swerve.Kinematics
	modules [swerve.NumModules]*Module
	gyro    *Gyro
}

// NewDrivetrain returns a stationary drivetrain with every module at 0°.
func NewDrivetrain(geometry swerve.ModuleGeometry) (*Drivetrain, error) {
	kin, err := swerve.NewKinematics(geometry)
	if err != nil {
		return nil, fmt.Errorf("sim kinematics: %w", err)
	}
	d := &Drivetrain{kin: kin, gyro: &Gyro{}}
	for i := range d.modules {
		d.modules[i] = &Module{}
	}
	return d, nil
}

// Module returns module i.
func (d *Drivetrain) Module(i int) *Module {
	return d.modules[i]
}

// Modules returns the modules in index order.
func (d *Drivetrain) Modules() [swerve.NumModules]*Module {
	return d.modules
}

// Gyro returns the simulated gyro.
func (d *Drivetrain) Gyro() *Gyro {
	return d.gyro
}

// Advance integrates every module's distance and the gyro heading over dt,
// holding the current states constant for the step.
func (d *Drivetrain) Advance(dt time.Duration) {
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}
	var states [swerve.NumModules]swerve.ModuleState
	for i, m := range d.modules {
		states[i] = m.advance(secs)
	}
	d.gyro.rotate(d.kin.Inverse(states).Omega * secs)
}
