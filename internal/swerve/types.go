package swerve

import (
	"fmt"

	"github.com/banshee-data/swervedrive/internal/geom"
)

// NumModules is fixed: the drivetrain has exactly four modules.
const NumModules = 4

// Module indices in the order used by every [NumModules] array.
const (
	FrontLeft = iota
	FrontRight
	BackLeft
	BackRight
)

var moduleNames = [NumModules]string{"front_left", "front_right", "back_left", "back_right"}

// ModuleName returns the snake_case name of module i.
func ModuleName(i int) string {
	if i < 0 || i >= NumModules {
		return fmt.Sprintf("module_%d", i)
	}
	return moduleNames[i]
}

// ChassisVelocity is a robot velocity. Whether it is robot-relative or
// field-relative is decided by the API that accepts it.
type ChassisVelocity struct {
	VX    float64 `json:"vx"`    // m/s
	VY    float64 `json:"vy"`    // m/s
	Omega float64 `json:"omega"` // rad/s, counter-clockwise positive
}

// IsZero reports whether every component is exactly zero.
func (v ChassisVelocity) IsZero() bool {
	return v.VX == 0 && v.VY == 0 && v.Omega == 0
}

// ModuleState is a wheel speed and steering angle. A negative speed drives
// the wheel opposite to Angle.
type ModuleState struct {
	Speed float64       `json:"speed"` // m/s
	Angle geom.Rotation `json:"angle_rad"`
}

// Vector returns the module's velocity vector.
func (s ModuleState) Vector() geom.Translation {
	return geom.Translation{X: s.Speed * s.Angle.Cos(), Y: s.Speed * s.Angle.Sin()}
}

func (s ModuleState) String() string {
	return fmt.Sprintf("%.3fm/s@%.1fdeg", s.Speed, s.Angle.Degrees())
}

// ModulePosition is the running wheel distance and the steering angle at the
// time it was sampled.
type ModulePosition struct {
	Distance float64       `json:"distance"` // m
	Angle    geom.Rotation `json:"angle_rad"`
}

// ModuleGeometry is the offset of each module from the centre of rotation.
type ModuleGeometry [NumModules]geom.Translation

// RectangularGeometry places the modules at the corners of a rectangle
// centred on the centre of rotation.
func RectangularGeometry(wheelbase, trackWidth float64) ModuleGeometry {
	hx, hy := wheelbase/2, trackWidth/2
	return ModuleGeometry{
		FrontLeft:  {X: hx, Y: hy},
		FrontRight: {X: hx, Y: -hy},
		BackLeft:   {X: -hx, Y: hy},
		BackRight:  {X: -hx, Y: -hy},
	}
}
