package geom

import (
	"encoding/json"
	"math"
)

// Translation is a planar vector.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (t Translation) Plus(o Translation) Translation  { return Translation{t.X + o.X, t.Y + o.Y} }
func (t Translation) Minus(o Translation) Translation { return Translation{t.X - o.X, t.Y - o.Y} }
func (t Translation) Times(s float64) Translation     { return Translation{t.X * s, t.Y * s} }
func (t Translation) Norm() float64                   { return math.Hypot(t.X, t.Y) }

// RotateBy rotates t counter-clockwise about the origin.
func (t Translation) RotateBy(r Rotation) Translation {
	c, s := r.Cos(), r.Sin()
	return Translation{
		X: t.X*c - t.Y*s,
		Y: t.X*s + t.Y*c,
	}
}

// Twist2D is a displacement along an arc of constant curvature, expressed in
// the frame of the pose it starts from.
type Twist2D struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	DTheta float64 `json:"dtheta"`
}

// Scale returns the twist multiplied by s.
func (tw Twist2D) Scale(s float64) Twist2D {
	return Twist2D{DX: tw.DX * s, DY: tw.DY * s, DTheta: tw.DTheta * s}
}

// Pose2D is a position and heading in the field frame. Fields are unexported
// so a pose is always built whole through NewPose or derived from another pose.
type Pose2D struct {
	t Translation
	r Rotation
}

// NewPose builds a pose at (x, y) facing heading.
func NewPose(x, y float64, heading Rotation) Pose2D {
	return Pose2D{t: Translation{X: x, Y: y}, r: heading}
}

func (p Pose2D) X() float64               { return p.t.X }
func (p Pose2D) Y() float64               { return p.t.Y }
func (p Pose2D) Translation() Translation { return p.t }
func (p Pose2D) Heading() Rotation        { return p.r }

// WithHeading returns p at the same position with the heading replaced.
func (p Pose2D) WithHeading(r Rotation) Pose2D {
	return Pose2D{t: p.t, r: r}
}

// Transform moves p by a translation and rotation given in p's own frame.
func (p Pose2D) Transform(t Translation, r Rotation) Pose2D {
	return Pose2D{
		t: p.t.Plus(t.RotateBy(p.r)),
		r: p.r.Plus(r),
	}
}

// RelativeTo expresses p in the frame of origin.
func (p Pose2D) RelativeTo(origin Pose2D) Pose2D {
	return Pose2D{
		t: p.t.Minus(origin.t).RotateBy(origin.r.Neg()),
		r: p.r.Minus(origin.r),
	}
}

// Small-angle cut-over for the series expansions in Exp and Log.
const seriesEpsilon = 1e-9

// Exp applies a twist to p, integrating along the arc rather than the chord.
func (p Pose2D) Exp(tw Twist2D) Pose2D {
	sinTheta := math.Sin(tw.DTheta)
	cosTheta := math.Cos(tw.DTheta)

	var s, c float64
	if math.Abs(tw.DTheta) < seriesEpsilon {
		s = 1.0 - tw.DTheta*tw.DTheta/6.0
		c = 0.5 * tw.DTheta
	} else {
		s = sinTheta / tw.DTheta
		c = (1 - cosTheta) / tw.DTheta
	}

	delta := Translation{
		X: tw.DX*s - tw.DY*c,
		Y: tw.DX*c + tw.DY*s,
	}
	return p.Transform(delta, FromRadians(tw.DTheta))
}

// Log returns the twist that takes p to end. It is the inverse of Exp.
func (p Pose2D) Log(end Pose2D) Twist2D {
	rel := end.RelativeTo(p)
	dtheta := rel.r.Radians()
	halfDtheta := dtheta / 2.0
	cosMinusOne := math.Cos(dtheta) - 1

	var halfThetaByTanHalf float64
	if math.Abs(cosMinusOne) < seriesEpsilon {
		halfThetaByTanHalf = 1.0 - dtheta*dtheta/12.0
	} else {
		halfThetaByTanHalf = -(halfDtheta * math.Sin(dtheta)) / cosMinusOne
	}

	part := rel.t.
		RotateBy(FromRadians(math.Atan2(-halfDtheta, halfThetaByTanHalf))).
		Times(math.Hypot(halfThetaByTanHalf, halfDtheta))

	return Twist2D{DX: part.X, DY: part.Y, DTheta: dtheta}
}

// ApproxEqual reports whether both position and heading are within tol.
func (p Pose2D) ApproxEqual(o Pose2D, tol float64) bool {
	return math.Abs(p.t.X-o.t.X) <= tol &&
		math.Abs(p.t.Y-o.t.Y) <= tol &&
		p.r.ApproxEqual(o.r, tol)
}

type poseJSON struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingRad float64 `json:"heading_rad"`
}

func (p Pose2D) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{X: p.t.X, Y: p.t.Y, HeadingRad: p.r.Radians()})
}

func (p *Pose2D) UnmarshalJSON(data []byte) error {
	var w poseJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = NewPose(w.X, w.Y, FromRadians(w.HeadingRad))
	return nil
}
