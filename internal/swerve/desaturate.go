package swerve

import "math"

// Desaturate scales every module speed by the same factor so that none
// exceeds maxSpeed in magnitude. Angles are never touched, so the ratio
// between module speeds, and with it the turning centre, is preserved.
// The second return reports whether any scaling happened.
func Desaturate(states [NumModules]ModuleState, maxSpeed float64) ([NumModules]ModuleState, bool) {
	if maxSpeed <= 0 {
		return states, false
	}

	observed := 0.0
	for _, s := range states {
		observed = math.Max(observed, math.Abs(s.Speed))
	}
	if observed <= maxSpeed {
		return states, false
	}

	scale := maxSpeed / observed
	for i := range states {
		states[i].Speed *= scale
	}
	return states, true
}
