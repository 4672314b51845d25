package swerve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/swervedrive/internal/geom"
)

func TestOptimize(t *testing.T) {
	tests := []struct {
		name      string
		target    ModuleState
		current   geom.Rotation
		wantSpeed float64
		wantDeg   float64
	}{
		{"small change kept", ModuleState{Speed: 2, Angle: geom.FromDegrees(30)}, geom.FromDegrees(0), 2, 30},
		{"exactly ninety kept", ModuleState{Speed: 2, Angle: geom.FromDegrees(90)}, geom.FromDegrees(0), 2, 90},
		{"reverse instead of half turn", ModuleState{Speed: 2, Angle: geom.FromDegrees(180)}, geom.FromDegrees(0), -2, 0},
		{"across the wrap", ModuleState{Speed: 1, Angle: geom.FromDegrees(-170)}, geom.FromDegrees(20), -1, 10},
		{"near wrap no flip", ModuleState{Speed: 1, Angle: geom.FromDegrees(-175)}, geom.FromDegrees(175), 1, -175},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Optimize(tt.target, tt.current)
			assert.InDelta(t, tt.wantSpeed, got.Speed, 1e-12)
			assert.InDelta(t, tt.wantDeg, got.Angle.Degrees(), 1e-9)
		})
	}
}

func TestOptimize_Properties(t *testing.T) {
	for target := -180.0; target <= 180; target += 7.5 {
		for current := -180.0; current <= 180; current += 11.25 {
			in := ModuleState{Speed: 1.3, Angle: geom.FromDegrees(target)}
			cur := geom.FromDegrees(current)
			got := Optimize(in, cur)

			assert.LessOrEqual(t, got.Angle.Distance(cur), math.Pi/2+1e-12,
				"target=%v current=%v", target, current)

			want := in.Vector()
			have := got.Vector()
			assert.InDelta(t, want.X, have.X, 1e-9)
			assert.InDelta(t, want.Y, have.Y, 1e-9)
		}
	}
}
