// Package camera models the pinhole geometry used by the depth tracer:
// camera intrinsics, the full and precombined projection paths, and the
// per-frame-pair precalc (relative pose folded with calibration plus the
// affine brightness transform).
package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a small fixed-size vector for hot projection paths.
type Vec3 [3]float64

// Mat3 is a row-major 3x3 matrix for hot projection paths.
type Mat3 [9]float64

// Identity3 returns the identity matrix.
func Identity3() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// MulVec applies m to v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// TopLeft2 returns the upper-left 2x2 block (row-major a,b,c,d).
func (m Mat3) TopLeft2() (a, b, c, d float64) {
	return m[0], m[1], m[3], m[4]
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Intrinsics describes a pinhole camera on the finest pyramid level.
type Intrinsics struct {
	Fx float64
	Fy float64
	Cx float64
	Cy float64

	Width  int
	Height int
}

// Validate checks the intrinsics describe a usable camera.
func (in Intrinsics) Validate() error {
	if in.Width < 8 || in.Height < 8 {
		return fmt.Errorf("camera: image %dx%d too small", in.Width, in.Height)
	}
	if in.Fx <= 0 || in.Fy <= 0 {
		return fmt.Errorf("camera: non-positive focal length (%v, %v)", in.Fx, in.Fy)
	}
	return nil
}

// K returns the 3x3 calibration matrix.
func (in Intrinsics) K() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		in.Fx, 0, in.Cx,
		0, in.Fy, in.Cy,
		0, 0, 1,
	})
}

// KInv returns the inverse calibration matrix.
func (in Intrinsics) KInv() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1 / in.Fx, 0, -in.Cx / in.Fx,
		0, 1 / in.Fy, -in.Cy / in.Fy,
		0, 0, 1,
	})
}

// InImage reports whether a projected pixel lands inside the usable image
// window (a small margin inside the border so bilinear sampling stays valid).
func (in Intrinsics) InImage(x, y float64) bool {
	return x > 1.1 && y > 1.1 && x < float64(in.Width)-3 && y < float64(in.Height)-3
}

// ProjectPre projects host pixel (u, v) into the target image at the given
// inverse depth through a precombined rotation (K·R·K⁻¹) and translation
// (K·t). Returns the projected pixel and the depth component of the
// unnormalized projection. ok is false when the pixel lands outside the
// usable image window.
func (in Intrinsics) ProjectPre(krki Mat3, kt Vec3, u, v, idepth float64) (ku, kv, ptz float64, ok bool) {
	ptp := krki.MulVec(Vec3{u, v, 1}).Add(kt.Scale(idepth))
	ku = ptp[0] / ptp[2]
	kv = ptp[1] / ptp[2]
	return ku, kv, ptp[2], in.InImage(ku, kv)
}

// OffsetProjection is the full projection of one pattern offset, carrying
// the quantities the inverse-depth derivative needs.
type OffsetProjection struct {
	Ku, Kv    float64 // projected pixel in the target image
	U, V      float64 // normalized camera-plane point in the target
	Drescale  float64 // relative depth scale between host and target
	NewIdepth float64 // inverse depth seen from the target
}

// ProjectOffset runs the full calibration path: back-project host pixel
// (u+dx, v+dy) at the given inverse depth, transform by (R, t), and project
// into the target image. ok is false behind the camera or outside the
// usable image window.
func (in Intrinsics) ProjectOffset(u, v, idepth, dx, dy float64, r Mat3, t Vec3) (OffsetProjection, bool) {
	klip := Vec3{
		(u + dx - in.Cx) / in.Fx,
		(v + dy - in.Cy) / in.Fy,
		1,
	}
	ptp := r.MulVec(klip).Add(t.Scale(idepth))
	drescale := 1 / ptp[2]
	if !(drescale > 0) || math.IsInf(drescale, 0) {
		return OffsetProjection{}, false
	}

	p := OffsetProjection{
		U:         ptp[0] * drescale,
		V:         ptp[1] * drescale,
		Drescale:  drescale,
		NewIdepth: idepth * drescale,
	}
	p.Ku = p.U*in.Fx + in.Cx
	p.Kv = p.V*in.Fy + in.Cy
	return p, in.InImage(p.Ku, p.Kv)
}
