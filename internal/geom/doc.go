// Package geom holds the planar geometry shared by kinematics and odometry.
//
// Conventions: x forward, y left, counter-clockwise positive rotation. Lengths
// are metres and angles radians unless a name says otherwise.
//
// Key types: Rotation, Translation, Pose2D, Twist2D.
// No I/O and no logging are allowed in this package.
package geom
