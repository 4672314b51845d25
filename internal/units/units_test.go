package units

import (
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{MPS, 10},
		{MPH, 22.369362920544},
		{KMPH, 36},
		{KPH, 36},
		{FPS, 32.808398950131},
		{"furlongs", 10},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := ConvertSpeed(10, tt.unit); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertSpeed(10, %q) = %v, want %v", tt.unit, got, tt.want)
			}
		})
	}
}

func TestConvertAngle(t *testing.T) {
	if got := ConvertAngle(math.Pi, Degrees); math.Abs(got-180) > 1e-12 {
		t.Errorf("ConvertAngle(pi, deg) = %v, want 180", got)
	}
	if got := ConvertAngle(1.25, Radians); got != 1.25 {
		t.Errorf("ConvertAngle(1.25, rad) = %v", got)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    Selection
		wantErr bool
	}{
		{"", Default, false},
		{"mph", Selection{Speed: MPH, Angle: Radians}, false},
		{"deg", Selection{Speed: MPS, Angle: Degrees}, false},
		{" KPH , Deg ", Selection{Speed: KPH, Angle: Degrees}, false},
		{"mph,,", Selection{Speed: MPH, Angle: Radians}, false},
		{"knots", Default, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSelection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidSpeedUnits {
		if !IsValidSpeed(u) {
			t.Errorf("IsValidSpeed(%q) = false", u)
		}
	}
	if IsValidSpeed(Degrees) || IsValidAngle(MPH) {
		t.Error("speed and angle units must not overlap")
	}
}
