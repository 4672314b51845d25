// Package swerve implements the module-level motion model of a four-module
// swerve drivetrain.
//
// Responsibilities: forward and inverse kinematics between chassis velocity and
// module states, uniform wheel-speed desaturation, per-module angle
// optimization, and the one-period discretization applied to commands.
// Key types: ChassisVelocity, ModuleState, ModulePosition, Kinematics.
//
// Everything here is a pure function of its inputs. Stateful pieces (odometry,
// the control loop) live in internal/odometry and internal/drive.
package swerve
