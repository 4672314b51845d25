// Package config loads the drivetrain configuration.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/serialmux"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// DefaultConfigPath is the path to the canonical drive defaults file.
const DefaultConfigPath = "config/drive.defaults.json"

// ModuleOffset is one module's position relative to the centre of rotation.
type ModuleOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DriveConfig is the root drivetrain configuration. Every field is optional;
// the Get* methods supply defaults for anything the file leaves out.
type DriveConfig struct {
	// Geometry: either a rectangle or four explicit offsets in
	// front-left, front-right, back-left, back-right order.
	Wheelbase     *float64       `json:"wheelbase,omitempty"`   // m, front to back axle
	TrackWidth    *float64       `json:"track_width,omitempty"` // m, left to right wheel
	ModuleOffsets []ModuleOffset `json:"module_offsets,omitempty"`

	MaxModuleSpeed  *float64 `json:"max_module_speed,omitempty"`  // m/s
	MaxLinearSpeed  *float64 `json:"max_linear_speed,omitempty"`  // m/s, operator full stick
	MaxAngularSpeed *float64 `json:"max_angular_speed,omitempty"` // rad/s, operator full stick

	ControlPeriod            *string `json:"control_period,omitempty"` // duration string like "20ms"
	DiscretizeMeasuredPeriod *bool   `json:"discretize_measured_period,omitempty"`
	StaleAfter               *string `json:"stale_after,omitempty"` // duration string like "100ms"

	SerialPort *string                `json:"serial_port,omitempty"`
	Serial     *serialmux.PortOptions `json:"serial,omitempty"`

	TelemetryFlushInterval *string `json:"telemetry_flush_interval,omitempty"`
	TelemetryBatchSize     *int    `json:"telemetry_batch_size,omitempty"`
	TelemetryBuffer        *int    `json:"telemetry_buffer,omitempty"`

	TeleopDeadzone *float64 `json:"teleop_deadzone,omitempty"`
	TeleopExpo     *float64 `json:"teleop_expo,omitempty"`
}

// EmptyDriveConfig returns a DriveConfig with every field unset, so every
// getter returns its default.
func EmptyDriveConfig() *DriveConfig {
	return &DriveConfig{}
}

// LoadDriveConfig loads a DriveConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadDriveConfig(path string) (*DriveConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDriveConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upward from the
// current directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *DriveConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadDriveConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *DriveConfig) Validate() error {
	if c.ModuleOffsets != nil && len(c.ModuleOffsets) != swerve.NumModules {
		return fmt.Errorf("module_offsets must list exactly %d modules, got %d", swerve.NumModules, len(c.ModuleOffsets))
	}
	if c.Wheelbase != nil && *c.Wheelbase <= 0 {
		return fmt.Errorf("wheelbase must be positive, got %f", *c.Wheelbase)
	}
	if c.TrackWidth != nil && *c.TrackWidth <= 0 {
		return fmt.Errorf("track_width must be positive, got %f", *c.TrackWidth)
	}
	if _, err := swerve.NewKinematics(c.GetModuleGeometry()); err != nil {
		return fmt.Errorf("module geometry: %w", err)
	}

	for name, v := range map[string]*float64{
		"max_module_speed":  c.MaxModuleSpeed,
		"max_linear_speed":  c.MaxLinearSpeed,
		"max_angular_speed": c.MaxAngularSpeed,
	} {
		if v != nil && (*v <= 0 || math.IsInf(*v, 0) || math.IsNaN(*v)) {
			return fmt.Errorf("%s must be a positive number, got %f", name, *v)
		}
	}

	for name, v := range map[string]*string{
		"control_period":           c.ControlPeriod,
		"stale_after":              c.StaleAfter,
		"telemetry_flush_interval": c.TelemetryFlushInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("serial: %w", err)
		}
	}

	if c.TelemetryBatchSize != nil && *c.TelemetryBatchSize <= 0 {
		return fmt.Errorf("telemetry_batch_size must be positive, got %d", *c.TelemetryBatchSize)
	}
	if c.TelemetryBuffer != nil && *c.TelemetryBuffer <= 0 {
		return fmt.Errorf("telemetry_buffer must be positive, got %d", *c.TelemetryBuffer)
	}

	if c.TeleopDeadzone != nil && (*c.TeleopDeadzone < 0 || *c.TeleopDeadzone >= 1) {
		return fmt.Errorf("teleop_deadzone must be in [0, 1), got %f", *c.TeleopDeadzone)
	}
	if c.TeleopExpo != nil && *c.TeleopExpo < 1 {
		return fmt.Errorf("teleop_expo must be at least 1, got %f", *c.TeleopExpo)
	}

	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetModuleGeometry returns the explicit module offsets if configured,
// otherwise the rectangle given by wheelbase and track width.
func (c *DriveConfig) GetModuleGeometry() swerve.ModuleGeometry {
	if len(c.ModuleOffsets) == swerve.NumModules {
		var g swerve.ModuleGeometry
		for i, off := range c.ModuleOffsets {
			g[i] = geom.Translation{X: off.X, Y: off.Y}
		}
		return g
	}
	return swerve.RectangularGeometry(c.GetWheelbase(), c.GetTrackWidth())
}

// GetWheelbase returns the wheelbase value or the default.
func (c *DriveConfig) GetWheelbase() float64 {
	if c.Wheelbase == nil {
		return 0.8
	}
	return *c.Wheelbase
}

// GetTrackWidth returns the track_width value or the default.
func (c *DriveConfig) GetTrackWidth() float64 {
	if c.TrackWidth == nil {
		return 0.8
	}
	return *c.TrackWidth
}

// GetMaxModuleSpeed returns the max_module_speed value or the default.
func (c *DriveConfig) GetMaxModuleSpeed() float64 {
	if c.MaxModuleSpeed == nil {
		return 4.5
	}
	return *c.MaxModuleSpeed
}

// GetMaxLinearSpeed returns the max_linear_speed value, defaulting to the
// module speed limit.
func (c *DriveConfig) GetMaxLinearSpeed() float64 {
	if c.MaxLinearSpeed == nil {
		return c.GetMaxModuleSpeed()
	}
	return *c.MaxLinearSpeed
}

// GetMaxAngularSpeed returns the max_angular_speed value or the default.
func (c *DriveConfig) GetMaxAngularSpeed() float64 {
	if c.MaxAngularSpeed == nil {
		return 2 * math.Pi
	}
	return *c.MaxAngularSpeed
}

// GetControlPeriod returns the control loop period.
func (c *DriveConfig) GetControlPeriod() time.Duration {
	return parseDurationOr(c.ControlPeriod, 20*time.Millisecond)
}

// GetDiscretizeMeasuredPeriod returns the discretize_measured_period value or the default.
func (c *DriveConfig) GetDiscretizeMeasuredPeriod() bool {
	if c.DiscretizeMeasuredPeriod == nil {
		return false
	}
	return *c.DiscretizeMeasuredPeriod
}

// GetStaleAfter returns how old a hardware sample may be before it is
// treated as missing.
func (c *DriveConfig) GetStaleAfter() time.Duration {
	return parseDurationOr(c.StaleAfter, 100*time.Millisecond)
}

// GetSerialPort returns the serial device path.
func (c *DriveConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyACM0"
	}
	return *c.SerialPort
}

// GetSerial returns the serial line options.
func (c *DriveConfig) GetSerial() serialmux.PortOptions {
	if c.Serial == nil {
		return serialmux.PortOptions{BaudRate: 115200}
	}
	return *c.Serial
}

// GetTelemetryFlushInterval returns how often buffered telemetry is written.
func (c *DriveConfig) GetTelemetryFlushInterval() time.Duration {
	return parseDurationOr(c.TelemetryFlushInterval, time.Second)
}

// GetTelemetryBatchSize returns the telemetry_batch_size value or the default.
func (c *DriveConfig) GetTelemetryBatchSize() int {
	if c.TelemetryBatchSize == nil {
		return 50
	}
	return *c.TelemetryBatchSize
}

// GetTelemetryBuffer returns the telemetry_buffer value or the default.
func (c *DriveConfig) GetTelemetryBuffer() int {
	if c.TelemetryBuffer == nil {
		return 512
	}
	return *c.TelemetryBuffer
}

// GetTeleopDeadzone returns the teleop_deadzone value or the default.
func (c *DriveConfig) GetTeleopDeadzone() float64 {
	if c.TeleopDeadzone == nil {
		return 0.1
	}
	return *c.TeleopDeadzone
}

// GetTeleopExpo returns the teleop_expo value or the default.
func (c *DriveConfig) GetTeleopExpo() float64 {
	if c.TeleopExpo == nil {
		return 1.6
	}
	return *c.TeleopExpo
}
