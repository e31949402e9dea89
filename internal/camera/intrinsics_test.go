package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testIntrinsics() Intrinsics {
	return Intrinsics{Fx: 520, Fy: 520, Cx: 320, Cy: 240, Width: 640, Height: 480}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, testIntrinsics().Validate())

	bad := testIntrinsics()
	bad.Fx = 0
	assert.Error(t, bad.Validate())

	bad = testIntrinsics()
	bad.Width = 4
	assert.Error(t, bad.Validate())
}

func TestKInverse(t *testing.T) {
	in := testIntrinsics()
	var prod mat.Dense
	prod.Mul(in.K(), in.KInv())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, prod.At(i, j), 1e-12)
		}
	}
}

func TestInImage(t *testing.T) {
	in := testIntrinsics()
	assert.True(t, in.InImage(320, 240))
	assert.False(t, in.InImage(1.0, 240))
	assert.False(t, in.InImage(320, 1.0))
	assert.False(t, in.InImage(637.5, 240))
	assert.False(t, in.InImage(320, 477.5))
}

func TestProjectPreIdentity(t *testing.T) {
	in := testIntrinsics()
	ku, kv, ptz, ok := in.ProjectPre(Identity3(), Vec3{}, 100, 200, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 100, ku, 1e-12)
	assert.InDelta(t, 200, kv, 1e-12)
	assert.InDelta(t, 1.0, ptz, 1e-12)
}

func TestProjectPreTranslation(t *testing.T) {
	in := testIntrinsics()
	// Pure x translation shifts the projection by fx·tx·idepth.
	pc, err := NewPrecalc(in, Identity3(), Vec3{0.05, 0, 0}, IdentityAffine)
	require.NoError(t, err)

	ku, kv, _, ok := in.ProjectPre(pc.KRKi, pc.Kt, 320, 240, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 320+520*0.05*0.5, ku, 1e-9)
	assert.InDelta(t, 240, kv, 1e-9)
}

func TestProjectOffsetIdentity(t *testing.T) {
	in := testIntrinsics()
	p, ok := in.ProjectOffset(320, 240, 0.7, 2, -1, Identity3(), Vec3{})
	require.True(t, ok)
	assert.InDelta(t, 322, p.Ku, 1e-9)
	assert.InDelta(t, 239, p.Kv, 1e-9)
	assert.InDelta(t, 1.0, p.Drescale, 1e-12)
	assert.InDelta(t, 0.7, p.NewIdepth, 1e-12)
}

func TestProjectOffsetBehindCamera(t *testing.T) {
	in := testIntrinsics()
	// Translation along -z pushes the point behind the camera for a large
	// enough inverse depth.
	_, ok := in.ProjectOffset(320, 240, 10, 0, 0, Identity3(), Vec3{0, 0, -0.2})
	assert.False(t, ok)
}

func TestNewPrecalcRotation(t *testing.T) {
	in := testIntrinsics()
	theta := 0.02
	r := Mat3{
		math.Cos(theta), 0, math.Sin(theta),
		0, 1, 0,
		-math.Sin(theta), 0, math.Cos(theta),
	}
	pc, err := NewPrecalc(in, r, Vec3{0.1, -0.02, 0.03}, Affine{A: 1.1, B: 2})
	require.NoError(t, err)

	var want mat.Dense
	want.Mul(in.K(), mat.NewDense(3, 3, r[:]))
	want.Mul(&want, in.KInv())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want.At(i, j), pc.KRKi[i*3+j], 1e-12)
		}
	}

	assert.InDelta(t, 520*0.1+320*0.03, pc.Kt[0], 1e-12)
	assert.InDelta(t, 520*-0.02+240*0.03, pc.Kt[1], 1e-12)
	assert.InDelta(t, 0.03, pc.Kt[2], 1e-12)
	assert.Equal(t, Affine{A: 1.1, B: 2}, pc.Aff)
}

func TestMat3Helpers(t *testing.T) {
	m := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	v := m.MulVec(Vec3{1, 0, -1})
	assert.Equal(t, Vec3{-2, -2, -2}, v)

	a, b, c, d := m.TopLeft2()
	assert.Equal(t, [4]float64{1, 2, 4, 5}, [4]float64{a, b, c, d})

	assert.Equal(t, Vec3{3, 3, 3}, Vec3{1, 2, 3}.Add(Vec3{2, 1, 0}))
	assert.Equal(t, Vec3{2, 4, 6}, Vec3{1, 2, 3}.Scale(2))
}
