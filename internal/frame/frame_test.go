package frame

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp builds a w x h plane with intensity a*x + b*y + c.
func ramp(w, h int, a, b, c float64) []float64 {
	plane := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			plane[y*w+x] = a*float64(x) + b*float64(y) + c
		}
	}
	return plane
}

func TestNewValidation(t *testing.T) {
	_, err := New("f", 1, 10, make([]float64, 10), 1)
	assert.Error(t, err)

	_, err = New("f", 10, 10, make([]float64, 99), 1)
	assert.Error(t, err)

	f, err := New("f", 10, 10, make([]float64, 100), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Levels())
	assert.Equal(t, 10, f.Width(0))
	assert.Equal(t, 10, f.Height(0))
}

func TestSampleLinearRampExact(t *testing.T) {
	// Bilinear interpolation reproduces a linear ramp exactly, and its
	// gradient planes are constant.
	f, err := New("ramp", 32, 32, ramp(32, 32, 2.0, -1.5, 10), 1)
	require.NoError(t, err)

	for _, pt := range [][2]float64{{5, 5}, {10.25, 7.75}, {15.5, 20.5}} {
		s, ok := f.Sample(0, pt[0], pt[1])
		require.True(t, ok)
		assert.InDelta(t, 2.0*pt[0]-1.5*pt[1]+10, s.Intensity, 1e-9)
		assert.InDelta(t, 2.0, s.GradX, 1e-9)
		assert.InDelta(t, -1.5, s.GradY, 1e-9)
	}
}

func TestSampleOutOfBounds(t *testing.T) {
	f, err := New("f", 16, 16, ramp(16, 16, 1, 1, 0), 1)
	require.NoError(t, err)

	cases := []struct {
		x, y float64
		ok   bool
	}{
		{-0.5, 5, false},
		{5, -0.5, false},
		{15.5, 5, false}, // interpolation window needs x <= w-2
		{5, 15.5, false},
		{14.0, 14.0, true},
		{0, 0, true},
	}
	for _, c := range cases {
		_, ok := f.Sample(0, c.x, c.y)
		assert.Equalf(t, c.ok, ok, "sample at (%v,%v)", c.x, c.y)
	}

	_, ok := f.Sample(1, 2, 2) // no such level
	assert.False(t, ok)
}

func TestSampleNaNRegion(t *testing.T) {
	plane := ramp(16, 16, 1, 0, 0)
	plane[5*16+5] = math.NaN()
	f, err := New("f", 16, 16, plane, 1)
	require.NoError(t, err)

	// Any window touching the NaN pixel is unsampleable.
	_, ok := f.Sample(0, 4.5, 4.5)
	assert.False(t, ok)

	// Far away from it stays fine.
	_, ok = f.Sample(0, 10.5, 10.5)
	assert.True(t, ok)
}

func TestPyramid(t *testing.T) {
	f, err := New("f", 64, 48, ramp(64, 48, 1, 2, 3), 3)
	require.NoError(t, err)
	require.Equal(t, 3, f.Levels())
	assert.Equal(t, 32, f.Width(1))
	assert.Equal(t, 24, f.Height(1))
	assert.Equal(t, 16, f.Width(2))
	assert.Equal(t, 12, f.Height(2))

	// 2x2 averaging of a linear ramp keeps it linear with doubled slope
	// per pixel: level-1 pixel (x,y) averages host pixels around (2x+0.5, 2y+0.5).
	s, ok := f.Sample(1, 4, 4)
	require.True(t, ok)
	assert.InDelta(t, 1*(2*4+0.5)+2*(2*4+0.5)+3, s.Intensity, 1e-9)
}

func TestFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.SetGray(3, 2, color.Gray{Y: 200})
	img.SetGray(4, 2, color.Gray{Y: 100})

	f, err := FromGray("gray", img, 1)
	require.NoError(t, err)

	s, ok := f.Sample(0, 3.5, 2.0)
	require.True(t, ok)
	assert.InDelta(t, 150, s.Intensity, 1e-9)
}
