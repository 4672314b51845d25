package hardware

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/swervedrive/internal/geom"
	"github.com/banshee-data/swervedrive/internal/swerve"
)

// Line types sent by the motor controller board.
const (
	LineTypeModule = "module"
	LineTypeGyro   = "gyro"
	LineTypeAxes   = "axes"
)

// CommandHello asks the board to start streaming feedback.
const CommandHello = "H"

// Line is one JSON feedback line from the board. Which fields are meaningful
// depends on Type.
type Line struct {
	Type string `json:"type"`

	// module
	ID       *int    `json:"id,omitempty"`
	Distance float64 `json:"distance"` // m, running total
	Angle    float64 `json:"angle"`    // rad
	Speed    float64 `json:"speed"`    // m/s

	// gyro
	Heading float64 `json:"heading"` // rad
	// ResetSeq is the sequence number of the last gyro reset the board
	// applied before taking this reading. Zero until the first reset.
	ResetSeq uint64 `json:"reset_seq"`

	// axes
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Rot float64 `json:"rot"`
}

// ParseLine decodes one feedback line. Lines that are not JSON objects, have
// an unknown type, or carry non-finite numbers are rejected.
func ParseLine(raw string) (Line, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return Line{}, fmt.Errorf("not a JSON line: %q", raw)
	}
	var l Line
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return Line{}, fmt.Errorf("decoding line: %w", err)
	}

	switch l.Type {
	case LineTypeModule:
		if l.ID == nil {
			return Line{}, fmt.Errorf("module line without id")
		}
		if *l.ID < 0 || *l.ID >= swerve.NumModules {
			return Line{}, fmt.Errorf("module id %d: %w", *l.ID, ErrUnknownModule)
		}
		if !finite(l.Distance, l.Angle, l.Speed) {
			return Line{}, fmt.Errorf("module %d: non-finite value", *l.ID)
		}
	case LineTypeGyro:
		if !finite(l.Heading) {
			return Line{}, fmt.Errorf("gyro: non-finite heading")
		}
	case LineTypeAxes:
		if !finite(l.X, l.Y, l.Rot) {
			return Line{}, fmt.Errorf("axes: non-finite value")
		}
	default:
		return Line{}, fmt.Errorf("unknown line type %q", l.Type)
	}
	return l, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FormatTarget renders the command that sets module id's target.
func FormatTarget(id int, s swerve.ModuleState) string {
	return fmt.Sprintf("T %d %.6f %.6f", id, s.Speed, s.Angle.Radians())
}

// FormatGyroReset renders the command that makes the gyro read heading. The
// board echoes seq as reset_seq on every gyro line it sends after applying it.
func FormatGyroReset(seq uint64, heading geom.Rotation) string {
	return fmt.Sprintf("G %d %.6f", seq, heading.Radians())
}
