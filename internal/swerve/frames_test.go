package swerve

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/swervedrive/internal/geom"
)

func TestFieldToRobot(t *testing.T) {
	tests := []struct {
		name    string
		v       ChassisVelocity
		heading geom.Rotation
		want    ChassisVelocity
	}{
		{"facing field x", ChassisVelocity{VX: 1, Omega: 0.5}, geom.FromDegrees(0), ChassisVelocity{VX: 1, Omega: 0.5}},
		{"facing field y", ChassisVelocity{VX: 1}, geom.FromDegrees(90), ChassisVelocity{VY: -1}},
		{"facing backwards", ChassisVelocity{VX: 1, VY: 2}, geom.FromDegrees(180), ChassisVelocity{VX: -1, VY: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FieldToRobot(tt.v, tt.heading)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("FieldToRobot mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.v, RobotToField(got, tt.heading), approx); diff != "" {
				t.Errorf("RobotToField did not invert (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiscretize(t *testing.T) {
	if diff := cmp.Diff(ChassisVelocity{VX: 1, VY: 2}, Discretize(ChassisVelocity{VX: 1, VY: 2}, 0.02), approx); diff != "" {
		t.Errorf("no rotation should be unchanged (-want +got):\n%s", diff)
	}

	v := ChassisVelocity{VX: 2, Omega: 3}
	if diff := cmp.Diff(v, Discretize(v, 0), approx); diff != "" {
		t.Errorf("zero dt should be unchanged (-want +got):\n%s", diff)
	}

	// Driving the discretized twist for dt must land on the straight-line
	// target with the full rotation.
	const dt = 0.1
	got := Discretize(v, dt)
	end := geom.Pose2D{}.Exp(geom.Twist2D{DX: got.VX * dt, DY: got.VY * dt, DTheta: got.Omega * dt})
	want := geom.NewPose(v.VX*dt, v.VY*dt, geom.FromRadians(v.Omega*dt))
	if !end.ApproxEqual(want, 1e-9) {
		t.Errorf("discretized motion ended at %+v, want %+v", end, want)
	}
	if got.VY >= 0 {
		t.Errorf("turning left while driving forward should bias VY negative, got %v", got.VY)
	}
}
