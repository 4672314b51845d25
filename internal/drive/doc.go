// Package drive coordinates the swerve drivetrain once per control cycle.
//
// Each cycle: read the heading sensor and every module's feedback, advance
// odometry, publish an immutable Snapshot, and, if a new velocity command has
// arrived since the last cycle, turn it into module targets (discretize,
// forward kinematics, desaturate, optimize) and dispatch them.
//
// Key types: Drive (the coordinator), Loop (the fixed-period driver),
// Snapshot (what readers see between cycles).
//
// Hardware is reached only through the Module and HeadingSensor interfaces;
// internal/sim and internal/hardware provide implementations.
package drive
