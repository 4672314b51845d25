package swerve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/swervedrive/internal/geom"
)

// ErrDegenerateGeometry is returned when the module offsets cannot recover
// all three chassis degrees of freedom, e.g. every module at the centre.
var ErrDegenerateGeometry = errors.New("degenerate module geometry")

// Kinematics converts between chassis velocity and module states for a fixed
// module geometry. It holds no mutable state and is safe for concurrent use.
type Kinematics struct {
	geometry ModuleGeometry

	// pinv is the 3x8 least-squares pseudo-inverse of the 8x3 module matrix,
	// computed once because the geometry never changes.
	pinv *mat.Dense
}

// NewKinematics builds the kinematics for g.
func NewKinematics(g ModuleGeometry) (*Kinematics, error) {
	a := mat.NewDense(2*NumModules, 3, nil)
	for i, off := range g {
		if math.IsNaN(off.X) || math.IsNaN(off.Y) || math.IsInf(off.X, 0) || math.IsInf(off.Y, 0) {
			return nil, fmt.Errorf("%w: %s offset is not finite", ErrDegenerateGeometry, ModuleName(i))
		}
		a.SetRow(2*i, []float64{1, 0, -off.Y})
		a.SetRow(2*i+1, []float64{0, 1, off.X})
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	if math.Abs(mat.Det(&ata)) < 1e-12 {
		return nil, fmt.Errorf("%w: module matrix is singular", ErrDegenerateGeometry)
	}

	var ataInv mat.Dense
	if err := ataInv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}

	pinv := mat.NewDense(3, 2*NumModules, nil)
	pinv.Mul(&ataInv, a.T())

	return &Kinematics{geometry: g, pinv: pinv}, nil
}

// Geometry returns the module offsets the kinematics were built with.
func (k *Kinematics) Geometry() ModuleGeometry {
	return k.geometry
}

// Forward returns the module states that realise v. Each module's velocity is
// the chassis linear velocity plus omega × offset. A module whose velocity is
// zero keeps lastAngles[i] instead of snapping to an undefined direction.
func (k *Kinematics) Forward(v ChassisVelocity, lastAngles [NumModules]geom.Rotation) [NumModules]ModuleState {
	var states [NumModules]ModuleState
	for i, off := range k.geometry {
		x := v.VX - v.Omega*off.Y
		y := v.VY + v.Omega*off.X
		if geom.IsZeroVector(x, y) {
			states[i] = ModuleState{Speed: 0, Angle: lastAngles[i]}
			continue
		}
		states[i] = ModuleState{Speed: math.Hypot(x, y), Angle: geom.FromVector(x, y)}
	}
	return states
}

// Inverse returns the chassis velocity that best explains the module states
// in the least-squares sense.
func (k *Kinematics) Inverse(states [NumModules]ModuleState) ChassisVelocity {
	b := mat.NewVecDense(2*NumModules, nil)
	for i, s := range states {
		vec := s.Vector()
		b.SetVec(2*i, vec.X)
		b.SetVec(2*i+1, vec.Y)
	}
	x := k.solve(b)
	return ChassisVelocity{VX: x[0], VY: x[1], Omega: x[2]}
}

// ToTwist returns the robot-frame displacement implied by per-module distance
// deltas, each taken along that module's current angle.
func (k *Kinematics) ToTwist(deltas [NumModules]ModulePosition) geom.Twist2D {
	b := mat.NewVecDense(2*NumModules, nil)
	for i, d := range deltas {
		b.SetVec(2*i, d.Distance*d.Angle.Cos())
		b.SetVec(2*i+1, d.Distance*d.Angle.Sin())
	}
	x := k.solve(b)
	return geom.Twist2D{DX: x[0], DY: x[1], DTheta: x[2]}
}

func (k *Kinematics) solve(b *mat.VecDense) [3]float64 {
	var x mat.VecDense
	x.MulVec(k.pinv, b)
	return [3]float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}
}
