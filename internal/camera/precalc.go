package camera

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Affine maps host intensity into target intensity: target ≈ A·host + B.
// It absorbs exposure and global illumination differences between the pair.
type Affine struct {
	A float64
	B float64
}

// IdentityAffine is the no-op brightness transform.
var IdentityAffine = Affine{A: 1, B: 0}

// Precalc caches the host→target geometry for one frame pair: the raw
// relative pose for the full projection path and the calibration-folded
// forms (K·R·K⁻¹, K·t) for the tracer's simplified path, plus the current
// affine brightness transform. Precalcs are immutable once built.
type Precalc struct {
	R    Mat3 // rotation host→target
	T    Vec3 // translation host→target
	KRKi Mat3 // K · R · K⁻¹
	Kt   Vec3 // K · t
	Aff  Affine
}

// NewPrecalc folds the relative pose (R, t) with the calibration.
func NewPrecalc(in Intrinsics, r Mat3, t Vec3, aff Affine) (Precalc, error) {
	if err := in.Validate(); err != nil {
		return Precalc{}, err
	}

	rm := mat.NewDense(3, 3, r[:])
	var krki mat.Dense
	krki.Mul(in.K(), rm)
	krki.Mul(&krki, in.KInv())

	p := Precalc{R: r, T: t, Aff: aff}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p.KRKi[i*3+j] = krki.At(i, j)
		}
	}
	p.Kt = Vec3{
		in.Fx*t[0] + in.Cx*t[2],
		in.Fy*t[1] + in.Cy*t[2],
		t[2],
	}
	return p, nil
}

// String summarises the pair geometry for diagnostics.
func (p Precalc) String() string {
	return fmt.Sprintf("precalc{t=(%.4f %.4f %.4f) aff=(%.3f %.3f)}", p.T[0], p.T[1], p.T[2], p.Aff.A, p.Aff.B)
}
