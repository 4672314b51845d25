package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/swervedrive/internal/swerve"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyDriveConfig_Defaults(t *testing.T) {
	cfg := EmptyDriveConfig()

	if got := cfg.GetMaxModuleSpeed(); got != 4.5 {
		t.Errorf("GetMaxModuleSpeed() = %f, want 4.5", got)
	}
	if got := cfg.GetMaxLinearSpeed(); got != 4.5 {
		t.Errorf("GetMaxLinearSpeed() = %f, want the module limit 4.5", got)
	}
	if got := cfg.GetMaxAngularSpeed(); got != 2*math.Pi {
		t.Errorf("GetMaxAngularSpeed() = %f, want 2pi", got)
	}
	if got := cfg.GetControlPeriod(); got != 20*time.Millisecond {
		t.Errorf("GetControlPeriod() = %v, want 20ms", got)
	}
	if cfg.GetDiscretizeMeasuredPeriod() {
		t.Error("GetDiscretizeMeasuredPeriod() = true, want false")
	}
	if got := cfg.GetStaleAfter(); got != 100*time.Millisecond {
		t.Errorf("GetStaleAfter() = %v, want 100ms", got)
	}
	if got := cfg.GetSerialPort(); got != "/dev/ttyACM0" {
		t.Errorf("GetSerialPort() = %q, want /dev/ttyACM0", got)
	}
	if got := cfg.GetSerial().BaudRate; got != 115200 {
		t.Errorf("GetSerial().BaudRate = %d, want 115200", got)
	}
	if got := cfg.GetTelemetryFlushInterval(); got != time.Second {
		t.Errorf("GetTelemetryFlushInterval() = %v, want 1s", got)
	}
	if got := cfg.GetTelemetryBatchSize(); got != 50 {
		t.Errorf("GetTelemetryBatchSize() = %d, want 50", got)
	}
	if got := cfg.GetTelemetryBuffer(); got != 512 {
		t.Errorf("GetTelemetryBuffer() = %d, want 512", got)
	}
	if got := cfg.GetTeleopDeadzone(); got != 0.1 {
		t.Errorf("GetTeleopDeadzone() = %f, want 0.1", got)
	}
	if got := cfg.GetTeleopExpo(); got != 1.6 {
		t.Errorf("GetTeleopExpo() = %f, want 1.6", got)
	}

	want := swerve.RectangularGeometry(0.8, 0.8)
	if got := cfg.GetModuleGeometry(); got != want {
		t.Errorf("GetModuleGeometry() = %v, want %v", got, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate, got %v", err)
	}
}

func TestLoadDriveConfig(t *testing.T) {
	path := writeConfig(t, "robot.json", `{
  "module_offsets": [
    {"x": 0.3, "y": 0.25},
    {"x": 0.3, "y": -0.25},
    {"x": -0.3, "y": 0.25},
    {"x": -0.3, "y": -0.25}
  ],
  "max_module_speed": 3.8,
  "control_period": "10ms",
  "discretize_measured_period": true,
  "serial_port": "/dev/ttyUSB1",
  "serial": {"baud_rate": 57600, "parity": "E"}
}`)

	cfg, err := LoadDriveConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	g := cfg.GetModuleGeometry()
	if g[swerve.FrontRight].X != 0.3 || g[swerve.FrontRight].Y != -0.25 {
		t.Errorf("front right offset = %+v, want {0.3 -0.25}", g[swerve.FrontRight])
	}
	if got := cfg.GetMaxModuleSpeed(); got != 3.8 {
		t.Errorf("GetMaxModuleSpeed() = %f, want 3.8", got)
	}
	if got := cfg.GetMaxLinearSpeed(); got != 3.8 {
		t.Errorf("GetMaxLinearSpeed() = %f, want 3.8", got)
	}
	if got := cfg.GetControlPeriod(); got != 10*time.Millisecond {
		t.Errorf("GetControlPeriod() = %v, want 10ms", got)
	}
	if !cfg.GetDiscretizeMeasuredPeriod() {
		t.Error("GetDiscretizeMeasuredPeriod() = false, want true")
	}
	if got := cfg.GetSerialPort(); got != "/dev/ttyUSB1" {
		t.Errorf("GetSerialPort() = %q", got)
	}
	if got := cfg.GetSerial(); got.BaudRate != 57600 || got.Parity != "E" {
		t.Errorf("GetSerial() = %+v", got)
	}
}

func TestLoadDriveConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "robot.yaml", `{}`, ".json extension"},
		{"bad json", "robot.json", `{"wheelbase": }`, "parse config JSON"},
		{"negative wheelbase", "robot.json", `{"wheelbase": -1}`, "wheelbase must be positive"},
		{"three offsets", "robot.json", `{"module_offsets": [{"x":1},{"x":2},{"x":3}]}`, "exactly 4 modules"},
		{"collapsed geometry", "robot.json", `{"module_offsets": [{},{},{},{}]}`, "module geometry"},
		{"zero speed", "robot.json", `{"max_module_speed": 0}`, "max_module_speed"},
		{"bad period", "robot.json", `{"control_period": "fast"}`, "invalid control_period"},
		{"negative stale", "robot.json", `{"stale_after": "-5ms"}`, "stale_after must be positive"},
		{"bad parity", "robot.json", `{"serial": {"parity": "mark"}}`, "serial"},
		{"zero batch", "robot.json", `{"telemetry_batch_size": 0}`, "telemetry_batch_size"},
		{"deadzone too big", "robot.json", `{"teleop_deadzone": 1}`, "teleop_deadzone"},
		{"expo below one", "robot.json", `{"teleop_expo": 0.5}`, "teleop_expo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadDriveConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDriveConfig_Missing(t *testing.T) {
	if _, err := LoadDriveConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDriveConfig_TooLarge(t *testing.T) {
	big := `{"serial_port": "` + strings.Repeat("x", 1024*1024) + `"}`
	path := writeConfig(t, "big.json", big)
	_, err := LoadDriveConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if got := cfg.GetControlPeriod(); got != 20*time.Millisecond {
		t.Errorf("default control period = %v, want 20ms", got)
	}
	if got := cfg.GetMaxModuleSpeed(); got != 4.5 {
		t.Errorf("default max module speed = %f, want 4.5", got)
	}
	if cfg.Wheelbase == nil {
		t.Error("defaults file should set wheelbase explicitly")
	}
}
