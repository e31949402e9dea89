package dvo

import (
	"math"

	"github.com/banshee-data/depth.report/internal/frame"
)

// GradHessian is the 2x2 structure tensor accumulated from the pattern's
// image gradients, summarising the point's directional texture strength.
type GradHessian struct {
	XX float64
	XY float64
	YY float64
}

// Quad evaluates the quadratic form (x y)·H·(x y)ᵀ.
func (g GradHessian) Quad(x, y float64) float64 {
	return x*x*g.XX + 2*x*y*g.XY + y*y*g.YY
}

// Point is a depth-estimation candidate anchored at a fixed pixel in its
// host frame. Its inverse-depth interval and status are mutated by Trace
// during tracking and read by the linearizer during optimization; nothing
// else writes to it.
type Point struct {
	// Host pixel, fixed for the point's lifetime.
	U float64
	V float64

	// Host is a non-owning reference; the point never outlives its frame.
	Host *frame.Frame

	// PatternType tags the sampling pattern the point was seeded with.
	// Only the standard 8-offset pattern is used here; the tag is carried
	// for the selector's bookkeeping.
	PatternType int

	// Valid is false when initialization hit an unsampleable pixel. An
	// invalid point carries no meaningful state and must be excluded from
	// all further processing.
	Valid bool

	// Appearance signature captured once at initialization.
	Color   [PatternSize]float64
	Weights [PatternSize]float64
	GradH   GradHessian

	// Inverse-depth interval. IdepthMin starts at 0 (unknown near bound),
	// IdepthMax at +Inf (unknown far bound). After any good trace,
	// IdepthMin <= IdepthMax.
	IdepthMin float64
	IdepthMax float64

	// EnergyTH is the point's outlier-energy budget.
	EnergyTH float64

	// Quality is the (second-best / best) match energy ratio from the most
	// recent unambiguous search; large means unambiguous.
	Quality float64

	Status Status

	// Diagnostics from the last trace: matched pixel and the reported
	// pixel-uncertainty width of the interval.
	LastTraceU             float64
	LastTraceV             float64
	LastTracePixelInterval float64
}

// NewPoint samples the pattern footprint at (u, v) on the host frame's
// finest level and initializes the point's appearance signature, weights,
// and structure tensor. If any pattern sample is unsampleable the returned
// point is marked invalid and is permanently unusable.
func NewPoint(u, v float64, host *frame.Frame, patternType int, cfg TraceConfig) *Point {
	p := &Point{
		U:           u,
		V:           v,
		Host:        host,
		PatternType: patternType,
		IdepthMin:   0,
		IdepthMax:   math.Inf(1),
		Quality:     MaxQuality,
		Status:      StatusUninitialized,
	}

	for idx := 0; idx < PatternSize; idx++ {
		dx, dy := float64(Pattern[idx][0]), float64(Pattern[idx][1])
		s, ok := host.Sample(0, u+dx, v+dy)
		if !ok {
			// Too close to the border or over an undefined region.
			return p
		}
		p.Color[idx] = s.Intensity
		p.GradH.XX += s.GradX * s.GradX
		p.GradH.XY += s.GradX * s.GradY
		p.GradH.YY += s.GradY * s.GradY

		gradSq := s.GradX*s.GradX + s.GradY*s.GradY
		p.Weights[idx] = math.Sqrt(cfg.OutlierTHSumComponent / (cfg.OutlierTHSumComponent + gradSq))
	}

	p.Valid = true
	p.EnergyTH = PatternSize * cfg.OutlierTH * cfg.OverallEnergyTHWeight * cfg.OverallEnergyTHWeight
	return p
}
