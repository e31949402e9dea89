// Package frame provides image frames for epipolar depth tracing.
//
// A Frame owns a small intensity pyramid with precomputed x/y gradient
// planes and exposes a bilinear sub-pixel sampler over all three channels.
// Frames are immutable after construction and safe for concurrent reads.
package frame

import (
	"fmt"
	"image"
	"math"
)

// MaxPyramidLevels bounds how many pyramid levels a frame may carry.
const MaxPyramidLevels = 6

// Sample is one bilinear lookup: intensity plus the two gradient channels.
type Sample struct {
	Intensity float64
	GradX     float64
	GradY     float64
}

// Level is a single pyramid level with its gradient planes.
type Level struct {
	Width  int
	Height int

	// Row-major planes, all Width*Height long.
	Intensity []float64
	GradX     []float64
	GradY     []float64
}

// Frame is an immutable image with per-level intensity and gradients.
type Frame struct {
	ID     string
	levels []*Level
}

// New builds a frame from a row-major intensity plane. The pyramid is built
// by 2x2 averaging down to `levels` levels (clamped to MaxPyramidLevels and
// to what the image size allows).
func New(id string, width, height int, intensity []float64, levels int) (*Frame, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("frame %s: image too small (%dx%d)", id, width, height)
	}
	if len(intensity) != width*height {
		return nil, fmt.Errorf("frame %s: intensity plane has %d samples, want %d", id, len(intensity), width*height)
	}
	if levels < 1 {
		levels = 1
	}
	if levels > MaxPyramidLevels {
		levels = MaxPyramidLevels
	}

	f := &Frame{ID: id}
	plane := intensity
	w, h := width, height
	for lvl := 0; lvl < levels; lvl++ {
		f.levels = append(f.levels, newLevel(w, h, plane))
		if w/2 < 2 || h/2 < 2 || lvl == levels-1 {
			break
		}
		plane = downsample(plane, w, h)
		w /= 2
		h /= 2
	}
	return f, nil
}

// FromGray builds a frame from an 8-bit grayscale image.
func FromGray(id string, img *image.Gray, levels int) (*Frame, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	intensity := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			intensity[y*w+x] = float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return New(id, w, h, intensity, levels)
}

func newLevel(w, h int, intensity []float64) *Level {
	l := &Level{
		Width:     w,
		Height:    h,
		Intensity: intensity,
		GradX:     make([]float64, w*h),
		GradY:     make([]float64, w*h),
	}
	// Central differences inside, one-sided at the border.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			switch {
			case x == 0:
				l.GradX[i] = intensity[i+1] - intensity[i]
			case x == w-1:
				l.GradX[i] = intensity[i] - intensity[i-1]
			default:
				l.GradX[i] = 0.5 * (intensity[i+1] - intensity[i-1])
			}
			switch {
			case y == 0:
				l.GradY[i] = intensity[i+w] - intensity[i]
			case y == h-1:
				l.GradY[i] = intensity[i] - intensity[i-w]
			default:
				l.GradY[i] = 0.5 * (intensity[i+w] - intensity[i-w])
			}
		}
	}
	return l
}

func downsample(plane []float64, w, h int) []float64 {
	nw, nh := w/2, h/2
	out := make([]float64, nw*nh)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			i := 2*y*w + 2*x
			out[y*nw+x] = 0.25 * (plane[i] + plane[i+1] + plane[i+w] + plane[i+w+1])
		}
	}
	return out
}

// Levels returns the number of pyramid levels.
func (f *Frame) Levels() int { return len(f.levels) }

// Width returns the width of the given pyramid level.
func (f *Frame) Width(level int) int { return f.levels[level].Width }

// Height returns the height of the given pyramid level.
func (f *Frame) Height(level int) int { return f.levels[level].Height }

// Sample bilinearly interpolates intensity and gradients at (x, y) on the
// given pyramid level. ok is false when the interpolation window falls
// outside the image or any contributing sample is not finite.
func (f *Frame) Sample(level int, x, y float64) (Sample, bool) {
	if level < 0 || level >= len(f.levels) {
		return Sample{}, false
	}
	l := f.levels[level]
	ix, iy := int(math.Floor(x)), int(math.Floor(y))
	if ix < 0 || iy < 0 || ix > l.Width-2 || iy > l.Height-2 {
		return Sample{}, false
	}
	fx, fy := x-float64(ix), y-float64(iy)
	i := iy*l.Width + ix

	s := Sample{
		Intensity: bilerp(l.Intensity, i, l.Width, fx, fy),
		GradX:     bilerp(l.GradX, i, l.Width, fx, fy),
		GradY:     bilerp(l.GradY, i, l.Width, fx, fy),
	}
	if !isFinite(s.Intensity) || !isFinite(s.GradX) || !isFinite(s.GradY) {
		return Sample{}, false
	}
	return s, true
}

func bilerp(plane []float64, i, w int, fx, fy float64) float64 {
	top := (1-fx)*plane[i] + fx*plane[i+1]
	bot := (1-fx)*plane[i+w] + fx*plane[i+w+1]
	return (1-fy)*top + fy*bot
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
