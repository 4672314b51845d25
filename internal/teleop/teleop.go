// Package teleop turns operator stick deflections into field-relative
// chassis velocities.
package teleop

import (
	"context"
	"math"

	"github.com/banshee-data/swervedrive/internal/config"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// Axes is one sample of operator input. Each axis is a deflection in
// [-1, 1]: X pushes field forward, Y field left, Rot counter-clockwise.
type Axes struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Rot float64 `json:"rot"`
}

// Shape clamps v to [-1, 1], zeroes anything inside deadzone, rescales the
// rest so output starts from 0 at the deadzone edge, then applies an
// exponential curve for finer control near centre.
func Shape(v, deadzone, expo float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	abs := math.Abs(v)
	if abs <= deadzone {
		return 0
	}
	scaled := (abs - deadzone) / (1 - deadzone)
	return applyExpo(math.Copysign(scaled, v), expo)
}

func applyExpo(value float64, expo float64) float64 {
	absExpo := math.Pow(math.Abs(value), expo)
	return math.Copysign(absExpo, value)
}

// Mapping scales shaped axes to chassis speeds.
type Mapping struct {
	MaxLinear  float64 // m/s at full deflection
	MaxAngular float64 // rad/s at full deflection
	Deadzone   float64
	Expo       float64
}

// MappingFromConfig reads the operator limits and stick shaping from cfg.
func MappingFromConfig(cfg *config.DriveConfig) Mapping {
	return Mapping{
		MaxLinear:  cfg.GetMaxLinearSpeed(),
		MaxAngular: cfg.GetMaxAngularSpeed(),
		Deadzone:   cfg.GetTeleopDeadzone(),
		Expo:       cfg.GetTeleopExpo(),
	}
}

// ToVelocity returns the field-relative velocity for a. The translation is
// capped at MaxLinear so a full diagonal is no faster than a full forward.
func (m Mapping) ToVelocity(a Axes) swerve.ChassisVelocity {
	x := Shape(a.X, m.Deadzone, m.Expo)
	y := Shape(a.Y, m.Deadzone, m.Expo)
	if n := math.Hypot(x, y); n > 1 {
		x, y = x/n, y/n
	}
	return swerve.ChassisVelocity{
		VX:    x * m.MaxLinear,
		VY:    y * m.MaxLinear,
		Omega: Shape(a.Rot, m.Deadzone, m.Expo) * m.MaxAngular,
	}
}

// FieldDriver accepts field-relative commands.
type FieldDriver interface {
	DriveFieldRelative(v swerve.ChassisVelocity)
}

// Run forwards every sample from axes to d as a field-relative command until
// ctx is done or axes is closed.
func (m Mapping) Run(ctx context.Context, axes <-chan Axes, d FieldDriver) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-axes:
			if !ok {
				return nil
			}
			d.DriveFieldRelative(m.ToVelocity(a))
		}
	}
}
