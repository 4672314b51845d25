package swerve

import (
	"math"

	"github.com/banshee-data/swervedrive/internal/geom"
)

// Optimize returns the state equivalent to target that needs the least
// steering from current. When target is more than 90° away the module drives
// the opposite way instead: angle flipped by 180° and speed negated.
func Optimize(target ModuleState, current geom.Rotation) ModuleState {
	if target.Angle.Distance(current) > math.Pi/2 {
		return ModuleState{Speed: -target.Speed, Angle: target.Angle.Flip()}
	}
	return target
}

// OptimizeAll applies Optimize to each module against its current angle.
func OptimizeAll(targets [NumModules]ModuleState, current [NumModules]geom.Rotation) [NumModules]ModuleState {
	for i := range targets {
		targets[i] = Optimize(targets[i], current[i])
	}
	return targets
}
