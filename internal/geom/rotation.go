package geom

import (
	"encoding/json"
	"math"
)

// Rotation is a planar angle held in the canonical range (−π, π].
// The zero value is no rotation.
type Rotation struct {
	rad float64
}

// WrapAngle folds rad into (−π, π].
func WrapAngle(rad float64) float64 {
	w := math.Remainder(rad, 2*math.Pi)
	if w <= -math.Pi {
		w += 2 * math.Pi
	}
	return w
}

// FromRadians returns the rotation for rad, wrapped.
func FromRadians(rad float64) Rotation {
	return Rotation{rad: WrapAngle(rad)}
}

// FromDegrees returns the rotation for deg, wrapped.
func FromDegrees(deg float64) Rotation {
	return FromRadians(deg * math.Pi / 180.0)
}

// FromVector returns the direction of (x, y). A zero vector has no direction
// and yields the zero rotation; callers that care must check IsZeroVector first.
func FromVector(x, y float64) Rotation {
	if IsZeroVector(x, y) {
		return Rotation{}
	}
	return FromRadians(math.Atan2(y, x))
}

// Radians returns the wrapped angle.
func (r Rotation) Radians() float64 { return r.rad }

// Degrees returns the wrapped angle in degrees.
func (r Rotation) Degrees() float64 { return r.rad * 180.0 / math.Pi }

func (r Rotation) Cos() float64 { return math.Cos(r.rad) }
func (r Rotation) Sin() float64 { return math.Sin(r.rad) }

// Plus returns r rotated further by o.
func (r Rotation) Plus(o Rotation) Rotation { return FromRadians(r.rad + o.rad) }

// Minus returns the signed rotation taking o to r, wrapped.
func (r Rotation) Minus(o Rotation) Rotation { return FromRadians(r.rad - o.rad) }

// Neg returns the inverse rotation.
func (r Rotation) Neg() Rotation { return FromRadians(-r.rad) }

// Flip returns r turned half a revolution.
func (r Rotation) Flip() Rotation { return FromRadians(r.rad + math.Pi) }

// Distance returns the unsigned angular distance between r and o in [0, π].
func (r Rotation) Distance(o Rotation) float64 {
	return math.Abs(r.Minus(o).rad)
}

// ApproxEqual reports whether r and o are within tol radians of each other.
func (r Rotation) ApproxEqual(o Rotation, tol float64) bool {
	return r.Distance(o) <= tol
}

// zeroVectorEpsilon is the magnitude below which a vector has no usable direction.
const zeroVectorEpsilon = 1e-9

// IsZeroVector reports whether (x, y) is too short to have a direction.
func IsZeroVector(x, y float64) bool {
	return math.Hypot(x, y) < zeroVectorEpsilon
}

// MarshalJSON encodes the rotation as radians.
func (r Rotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.rad)
}

// UnmarshalJSON decodes radians and wraps them.
func (r *Rotation) UnmarshalJSON(data []byte) error {
	var rad float64
	if err := json.Unmarshal(data, &rad); err != nil {
		return err
	}
	*r = FromRadians(rad)
	return nil
}
