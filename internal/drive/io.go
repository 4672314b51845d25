package drive

import (
	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// FeedbackSource reports what a module is doing.
type FeedbackSource interface {
	// Position returns the running wheel distance and current steering angle.
	Position() (swerve.ModulePosition, error)
	// State returns the current wheel speed and steering angle.
	State() (swerve.ModuleState, error)
}

// Sampler is implemented by feedback sources whose position and state can
// change between two calls. Sample returns both from one reading, and the
// coordinator prefers it over Position and State.
type Sampler interface {
	Sample() (swerve.ModulePosition, swerve.ModuleState, error)
}

// CommandSink accepts a module target.
type CommandSink interface {
	SetTarget(target swerve.ModuleState) error
}

// Module is one swerve module as seen by the coordinator.
type Module interface {
	FeedbackSource
	CommandSink
}

// HeadingSensor is the gyro.
type HeadingSensor interface {
	Heading() (geom.Rotation, error)
	// ResetHeading makes the sensor read heading from now on.
	ResetHeading(heading geom.Rotation) error
}

// Holonomic is everything a path follower needs from the drivetrain.
type Holonomic interface {
	Pose() geom.Pose2D
	ResetPose(pose geom.Pose2D) error
	CurrentVelocity() swerve.ChassisVelocity
	DriveRobotRelative(v swerve.ChassisVelocity)
}

// Observer is notified with every published snapshot. ObserveCycle runs on
// the control loop goroutine and must not block.
type Observer interface {
	ObserveCycle(snap Snapshot)
}

var _ Holonomic = (*Drive)(nil)
