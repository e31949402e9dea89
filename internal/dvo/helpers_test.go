package dvo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depth.report/internal/camera"
	"github.com/banshee-data/depth.report/internal/frame"
)

// testTexture is a smooth non-periodic intensity field with gradient energy
// on both axes, so matches along either epipolar direction are unambiguous.
func testTexture(x, y float64) float64 {
	return 128 + 55*math.Sin(0.52*x) + 35*math.Cos(0.31*y) + 18*math.Sin(0.17*(x+y))
}

// renderShifted renders the texture shifted right by `shift` pixels. A host
// rendered at shift 0 and a target at shift fx·tx·idepth simulate a plane at
// that inverse depth under a pure x translation.
func renderShifted(t *testing.T, id string, w, h int, shift float64) *frame.Frame {
	t.Helper()
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane[y*w+x] = testTexture(float64(x)-shift, float64(y))
		}
	}
	f, err := frame.New(id, w, h, plane, 1)
	require.NoError(t, err)
	return f
}

// renderConstant renders a flat frame. Against a textured host every match
// candidate has the same (large) energy.
func renderConstant(t *testing.T, id string, w, h int, value float64) *frame.Frame {
	t.Helper()
	plane := make([]float64, w*h)
	for i := range plane {
		plane[i] = value
	}
	f, err := frame.New(id, w, h, plane, 1)
	require.NoError(t, err)
	return f
}

// renderStripes renders horizontal stripes: intensity varies only with y, so
// there is no gradient along a horizontal epipolar line.
func renderStripes(t *testing.T, id string, w, h int) *frame.Frame {
	t.Helper()
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		v := 128 + 60*math.Sin(0.5*float64(y))
		for x := 0; x < w; x++ {
			plane[y*w+x] = v
		}
	}
	f, err := frame.New(id, w, h, plane, 1)
	require.NoError(t, err)
	return f
}

func intrinsicsFor(w, h int) camera.Intrinsics {
	return camera.Intrinsics{
		Fx: 0.8 * float64(w), Fy: 0.8 * float64(w),
		Cx: float64(w) / 2, Cy: float64(h) / 2,
		Width: w, Height: h,
	}
}

// precalcX builds a pure x-translation pair with identity rotation.
func precalcX(t *testing.T, in camera.Intrinsics, tx float64) camera.Precalc {
	t.Helper()
	pc, err := camera.NewPrecalc(in, camera.Identity3(), camera.Vec3{tx, 0, 0}, camera.IdentityAffine)
	require.NoError(t, err)
	return pc
}
