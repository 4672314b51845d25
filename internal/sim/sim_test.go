package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

func TestModule_SetTargetOptimizes(t *testing.T) {
	m := &Module{}
	require.NoError(t, m.SetTarget(swerve.ModuleState{Speed: 2, Angle: geom.FromDegrees(180)}))

	st, err := m.State()
	require.NoError(t, err)
	assert.InDelta(t, -2.0, st.Speed, 1e-12)
	assert.InDelta(t, 0.0, st.Angle.Degrees(), 1e-9)
}

func TestModule_FailNextReads(t *testing.T) {
	m := &Module{}
	m.FailNextReads(2)

	_, err := m.Position()
	assert.ErrorIs(t, err, ErrInjected)
	_, err = m.Position()
	assert.ErrorIs(t, err, ErrInjected)
	_, err = m.Position()
	assert.NoError(t, err)
}

func TestGyro(t *testing.T) {
	g := &Gyro{}
	require.NoError(t, g.ResetHeading(geom.FromDegrees(-30)))
	h, err := g.Heading()
	require.NoError(t, err)
	assert.InDelta(t, -30.0, h.Degrees(), 1e-9)

	g.FailNextReads(1)
	_, err = g.Heading()
	assert.ErrorIs(t, err, ErrInjected)
}

func TestDrivetrain_AdvanceSpin(t *testing.T) {
	geometry := swerve.RectangularGeometry(0.8, 0.8)
	d, err := NewDrivetrain(geometry)
	require.NoError(t, err)

	kin, err := swerve.NewKinematics(geometry)
	require.NoError(t, err)
	states := kin.Forward(swerve.ChassisVelocity{Omega: 1}, [swerve.NumModules]geom.Rotation{})
	for i, s := range states {
		require.NoError(t, d.Module(i).SetTarget(s))
	}

	for range 10 {
		d.Advance(50 * time.Millisecond)
	}

	h, err := d.Gyro().Heading()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, h.Radians(), 1e-9)

	for i, m := range d.Modules() {
		pos, err := m.Position()
		require.NoError(t, err)
		assert.InDelta(t, math.Abs(states[i].Speed)*0.5, math.Abs(pos.Distance), 1e-9)
	}
}

func TestDrivetrain_AdvanceIgnoresNonPositive(t *testing.T) {
	d, err := NewDrivetrain(swerve.RectangularGeometry(1, 1))
	require.NoError(t, err)
	require.NoError(t, d.Module(0).SetTarget(swerve.ModuleState{Speed: 1}))

	d.Advance(0)
	d.Advance(-time.Second)

	pos, err := d.Module(0).Position()
	require.NoError(t, err)
	assert.Zero(t, pos.Distance)
}

func TestNewDrivetrain_Degenerate(t *testing.T) {
	_, err := NewDrivetrain(swerve.ModuleGeometry{})
	assert.ErrorIs(t, err, swerve.ErrDegenerateGeometry)
}
