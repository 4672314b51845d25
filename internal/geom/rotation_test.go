package geom

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"pi stays pi", math.Pi, math.Pi},
		{"minus pi maps to pi", -math.Pi, math.Pi},
		{"three pi", 3 * math.Pi, math.Pi},
		{"just over pi", math.Pi + 0.1, -math.Pi + 0.1},
		{"full turn", 2 * math.Pi, 0},
		{"negative half turn plus", -math.Pi / 2, -math.Pi / 2},
		{"many turns", 10*math.Pi + 0.25, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WrapAngle(tt.in), tol)
		})
	}
}

func TestRotation_Arithmetic(t *testing.T) {
	a := FromDegrees(170)
	b := FromDegrees(20)

	assert.InDelta(t, -170.0, a.Plus(b).Degrees(), 1e-9)
	assert.InDelta(t, 150.0, a.Minus(b).Degrees(), 1e-9)
	assert.InDelta(t, -170.0, a.Neg().Degrees(), 1e-9)
	assert.InDelta(t, -10.0, a.Flip().Degrees(), 1e-9)
	assert.InDelta(t, math.Pi/9*1.0, FromDegrees(-170).Distance(FromDegrees(170)), 1e-9)
}

func TestFromVector(t *testing.T) {
	assert.InDelta(t, 90.0, FromVector(0, 2).Degrees(), tol)
	assert.InDelta(t, 180.0, FromVector(-1, 0).Degrees(), tol)
	assert.InDelta(t, -45.0, FromVector(1, -1).Degrees(), tol)

	assert.True(t, IsZeroVector(0, 1e-12))
	assert.Equal(t, Rotation{}, FromVector(0, 0))
}

func TestRotation_JSON(t *testing.T) {
	data, err := json.Marshal(FromDegrees(90))
	require.NoError(t, err)
	assert.Equal(t, "1.5707963267948966", string(data))

	var r Rotation
	require.NoError(t, json.Unmarshal([]byte("7.0"), &r))
	assert.InDelta(t, 7.0-2*math.Pi, r.Radians(), tol)

	assert.Error(t, json.Unmarshal([]byte(`"north"`), &r))
}
