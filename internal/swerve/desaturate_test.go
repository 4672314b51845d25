package swerve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/swervedrive/internal/geom"
)

func TestDesaturate(t *testing.T) {
	angles := [NumModules]geom.Rotation{
		geom.FromDegrees(0), geom.FromDegrees(45), geom.FromDegrees(-90), geom.FromDegrees(180),
	}
	mk := func(speeds ...float64) [NumModules]ModuleState {
		var s [NumModules]ModuleState
		for i := range s {
			s[i] = ModuleState{Speed: speeds[i], Angle: angles[i]}
		}
		return s
	}

	tests := []struct {
		name          string
		in            [NumModules]ModuleState
		max           float64
		wantSaturated bool
		wantSpeeds    []float64
	}{
		{"within limit", mk(1, 2, 3, 4), 4, false, []float64{1, 2, 3, 4}},
		{"scaled by largest", mk(1, 2, 3, 8), 4, true, []float64{0.5, 1, 1.5, 4}},
		{"negative speeds count by magnitude", mk(-6, 3, 0, 1.5), 3, true, []float64{-3, 1.5, 0, 0.75}},
		{"non-positive max disables", mk(10, 10, 10, 10), 0, false, []float64{10, 10, 10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, saturated := Desaturate(tt.in, tt.max)
			assert.Equal(t, tt.wantSaturated, saturated)
			for i, s := range got {
				assert.InDelta(t, tt.wantSpeeds[i], s.Speed, 1e-12)
				assert.Equal(t, angles[i], s.Angle, "angles are untouched")
				if tt.max > 0 {
					assert.LessOrEqual(t, math.Abs(s.Speed), tt.max+1e-12)
				}
			}
		})
	}
}

func TestDesaturate_PreservesRatios(t *testing.T) {
	k, err := NewKinematics(RectangularGeometry(0.6, 0.5))
	if err != nil {
		t.Fatal(err)
	}
	v := ChassisVelocity{VX: 6, VY: 3, Omega: 9}
	raw := k.Forward(v, [NumModules]geom.Rotation{})
	got, saturated := Desaturate(raw, 4.5)
	assert.True(t, saturated)

	ratio := got[0].Speed / raw[0].Speed
	for i := range got {
		assert.InDelta(t, ratio, got[i].Speed/raw[i].Speed, 1e-12)
	}

	// Same direction of travel, scaled down.
	back := k.Inverse(got)
	assert.InDelta(t, v.VX*ratio, back.VX, 1e-9)
	assert.InDelta(t, v.VY*ratio, back.VY, 1e-9)
	assert.InDelta(t, v.Omega*ratio, back.Omega, 1e-9)
}
