// Package odometry dead-reckons the robot pose from module distance deltas
// and a heading sensor.
//
// Rotation comes from the heading sensor, never from wheel deltas: wheels slip,
// the gyro is authoritative. Translation is integrated along the arc implied
// by the module deltas using the pose exponential.
package odometry

import (
	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// Integrator holds the running pose and the baseline used to diff the next
// set of module positions. It is not safe for concurrent use; the drive
// coordinator serializes access.
type Integrator struct {
	kin *swerve.Kinematics

	pose geom.Pose2D

	// headingOffset maps sensor heading onto field heading: field = sensor + offset.
	headingOffset geom.Rotation
	prevHeading   geom.Rotation
	prevPositions [swerve.NumModules]swerve.ModulePosition

	// baselined is false until the first Update or Reset supplies positions
	// to diff against.
	baselined bool
}

// New returns an integrator at the origin with no baseline. The first Update
// establishes the baseline and moves nothing.
func New(kin *swerve.Kinematics) *Integrator {
	return &Integrator{kin: kin}
}

// Pose returns the current pose estimate.
func (o *Integrator) Pose() geom.Pose2D {
	return o.pose
}

// Baselined reports whether a previous sample exists to diff against.
func (o *Integrator) Baselined() bool {
	return o.baselined
}

// Reset overwrites the pose with pose and re-baselines on the given sensor
// heading and module positions, in one step. Subsequent deltas are measured
// from positions, and the sensor heading is re-mapped so that it reads as
// pose's heading.
func (o *Integrator) Reset(heading geom.Rotation, positions [swerve.NumModules]swerve.ModulePosition, pose geom.Pose2D) {
	o.headingOffset = pose.Heading().Minus(heading)
	o.prevHeading = pose.Heading()
	o.prevPositions = positions
	o.pose = pose
	o.baselined = true
}

// Update advances the pose by the displacement since the previous call and
// returns the new estimate.
func (o *Integrator) Update(heading geom.Rotation, positions [swerve.NumModules]swerve.ModulePosition) geom.Pose2D {
	fieldHeading := heading.Plus(o.headingOffset)

	if !o.baselined {
		o.prevPositions = positions
		o.prevHeading = fieldHeading
		o.pose = o.pose.WithHeading(fieldHeading)
		o.baselined = true
		return o.pose
	}

	var deltas [swerve.NumModules]swerve.ModulePosition
	for i, p := range positions {
		deltas[i] = swerve.ModulePosition{
			Distance: p.Distance - o.prevPositions[i].Distance,
			Angle:    p.Angle,
		}
	}

	tw := o.kin.ToTwist(deltas)
	tw.DTheta = fieldHeading.Minus(o.prevHeading).Radians()

	next := o.pose.Exp(tw)
	// Pin the heading to the sensor so rounding in Exp cannot accumulate.
	o.pose = next.WithHeading(fieldHeading)

	o.prevHeading = fieldHeading
	o.prevPositions = positions
	return o.pose
}
