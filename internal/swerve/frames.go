package swerve

import (
	"github.com/banshee-data/swervedrive/internal/geom"
)

// FieldToRobot re-expresses a field-relative velocity in the robot frame of a
// robot facing heading. Omega is frame independent.
func FieldToRobot(v ChassisVelocity, heading geom.Rotation) ChassisVelocity {
	t := geom.Translation{X: v.VX, Y: v.VY}.RotateBy(heading.Neg())
	return ChassisVelocity{VX: t.X, VY: t.Y, Omega: v.Omega}
}

// RobotToField is the inverse of FieldToRobot.
func RobotToField(v ChassisVelocity, heading geom.Rotation) ChassisVelocity {
	t := geom.Translation{X: v.VX, Y: v.VY}.RotateBy(heading)
	return ChassisVelocity{VX: t.X, VY: t.Y, Omega: v.Omega}
}

// Discretize corrects v for being held constant over dt seconds while the
// robot is also turning. Driving the returned velocity as a straight-line
// twist for dt lands on the pose that v's straight line plus rotation would
// reach, which removes the sideways skew of translating while rotating.
// A non-positive dt returns v unchanged.
func Discretize(v ChassisVelocity, dt float64) ChassisVelocity {
	if dt <= 0 {
		return v
	}
	origin := geom.Pose2D{}
	target := geom.NewPose(v.VX*dt, v.VY*dt, geom.FromRadians(v.Omega*dt))
	tw := origin.Log(target)
	return ChassisVelocity{VX: tw.DX / dt, VY: tw.DY / dt, Omega: tw.DTheta / dt}
}
