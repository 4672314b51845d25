// Package units provides the speed and angle units the HTTP API can report in.
// Everything inside the drivetrain is SI: m/s and radians.
package units

import (
	"fmt"
	"math"
	"strings"
)

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
	FPS  = "fps"
)

// Angle unit constants
const (
	Radians = "rad"
	Degrees = "deg"
)

// ValidSpeedUnits contains all valid speed unit values
var ValidSpeedUnits = []string{MPS, MPH, KMPH, KPH, FPS}

// ValidAngleUnits contains all valid angle unit values
var ValidAngleUnits = []string{Radians, Degrees}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// IsValidSpeed checks if the given unit is a known speed unit
func IsValidSpeed(unit string) bool { return contains(ValidSpeedUnits, unit) }

// IsValidAngle checks if the given unit is a known angle unit
func IsValidAngle(unit string) bool { return contains(ValidAngleUnits, unit) }

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	case FPS:
		return speedMPS / 0.3048
	default:
		return speedMPS
	}
}

// ConvertAngle converts an angle, or angular rate, from radians to the target units
func ConvertAngle(rad float64, targetUnits string) float64 {
	if targetUnits == Degrees {
		return rad * 180 / math.Pi
	}
	return rad
}

// Selection is the pair of units a response is rendered in.
type Selection struct {
	Speed string `json:"speed"`
	Angle string `json:"angle"`
}

// Default is SI.
var Default = Selection{Speed: MPS, Angle: Radians}

// ParseSelection reads a comma-separated list such as "mph,deg". Either part
// may be omitted; omitted parts keep their default.
func ParseSelection(s string) (Selection, error) {
	sel := Default
	if strings.TrimSpace(s) == "" {
		return sel, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch {
		case part == "":
		case IsValidSpeed(part):
			sel.Speed = part
		case IsValidAngle(part):
			sel.Angle = part
		default:
			return Default, fmt.Errorf("unknown unit %q: speed must be one of %s, angle one of %s",
				part, strings.Join(ValidSpeedUnits, ", "), strings.Join(ValidAngleUnits, ", "))
		}
	}
	return sel, nil
}
