package dvo

import (
	"math"

	"github.com/banshee-data/depth.report/internal/camera"
	"github.com/banshee-data/depth.report/internal/frame"
)

// ResState classifies a point-frame residual inside the optimizer loop.
type ResState string

const (
	ResIn      ResState = "in"
	ResOutlier ResState = "outlier"
	ResOOB     ResState = "oob"
)

// Residual is the ephemeral pairing of a point with a target frame during
// one optimization iteration. It is created and discarded by the optimizer
// loop that owns it and must not be shared across concurrent iterations
// referencing the same point.
type Residual struct {
	Target *frame.Frame

	State  ResState
	Energy float64

	NewState  ResState
	NewEnergy float64
}

// NewResidual pairs a point with a target frame for optimization.
func NewResidual(target *frame.Frame) *Residual {
	return &Residual{Target: target, State: ResIn}
}

// Apply commits the proposed state and energy after an accepted iteration.
func (r *Residual) Apply() {
	r.State = r.NewState
	r.Energy = r.NewEnergy
}

// patternEval accumulates the per-pattern residual terms. ResidualEnergy
// and Linearize both run it with the same projection path, so they agree
// on energy by construction.
type patternEval struct {
	energy float64
	hdd    float64
	bd     float64
	ok     bool
}

func evalPattern(p *Point, target *frame.Frame, in camera.Intrinsics, pc camera.Precalc, idepth float64, cfg TraceConfig, withDeriv bool) patternEval {
	var e patternEval
	for idx := 0; idx < PatternSize; idx++ {
		dx, dy := float64(Pattern[idx][0]), float64(Pattern[idx][1])

		// Each offset re-projects independently: the footprint does not
		// move rigidly under projective geometry.
		proj, ok := in.ProjectOffset(p.U, p.V, idepth, dx, dy, pc.R, pc.T)
		if !ok {
			return patternEval{}
		}
		s, ok := target.Sample(0, proj.Ku, proj.Kv)
		if !ok {
			return patternEval{}
		}

		residual := s.Intensity - (pc.Aff.A*p.Color[idx] + pc.Aff.B)
		hw := huberWeight(residual, cfg.HuberTH)
		wsq := p.Weights[idx] * p.Weights[idx]
		e.energy += wsq * hw * residual * residual * (2 - hw)

		if withDeriv {
			// Chain rule through the projection: image gradient times the
			// pixel displacement per unit inverse depth.
			gx := s.GradX * in.Fx
			gy := s.GradY * in.Fy
			dIdepth := (gx*(pc.T[0]-pc.T[2]*proj.U) + gy*(pc.T[1]-pc.T[2]*proj.V)) * proj.Drescale

			hww := hw * wsq
			e.hdd += hww * dIdepth * dIdepth
			e.bd += hww * residual * dIdepth
		}
	}
	e.ok = true
	return e
}

// PixelSensitivity returns the magnitude of image-plane displacement per
// unit change in inverse depth at the given hypothesis. The optimizer uses
// it to judge how informative the point is. ok is false when the point does
// not project into the target image.
func PixelSensitivity(p *Point, in camera.Intrinsics, pc camera.Precalc, idepth float64) (float64, bool) {
	proj, ok := in.ProjectOffset(p.U, p.V, idepth, 0, 0, pc.R, pc.T)
	if !ok {
		return 0, false
	}
	dxdd := (pc.T[0] - pc.T[2]*proj.U) * in.Fx
	dydd := (pc.T[1] - pc.T[2]*proj.V) * in.Fy
	return proj.Drescale * math.Hypot(dxdd, dydd), true
}

// ResidualEnergy evaluates the point's photometric energy against the
// target frame at the given inverse depth. Any unprojectable or
// unsampleable offset yields SentinelEnergy; otherwise the Huberized,
// weighted energy is clamped to EnergyTH·outlierSlack. The cached residual
// state is not consulted or modified.
func ResidualEnergy(p *Point, target *frame.Frame, in camera.Intrinsics, pc camera.Precalc, outlierSlack, idepth float64, cfg TraceConfig) float64 {
	e := evalPattern(p, target, in, pc, idepth, cfg, false)
	if !e.ok {
		return SentinelEnergy
	}
	if e.energy > p.EnergyTH*outlierSlack {
		return p.EnergyTH * outlierSlack
	}
	return e.energy
}

// Linearize evaluates the energy and the depth-only Gauss-Newton terms
// (Hdd, bd) for the residual at the given inverse depth, classifying and
// caching the proposed residual state. A residual already out of bounds is
// short-circuited with its cached energy.
func Linearize(p *Point, res *Residual, in camera.Intrinsics, pc camera.Precalc, outlierSlack, idepth float64, cfg TraceConfig) (energy, hdd, bd float64) {
	if res.State == ResOOB {
		res.NewState = ResOOB
		return res.Energy, 0, 0
	}

	e := evalPattern(p, res.Target, in, pc, idepth, cfg, true)
	if !e.ok {
		res.NewState = ResOOB
		return res.Energy, 0, 0
	}

	energy = e.energy
	if energy > p.EnergyTH*outlierSlack {
		energy = p.EnergyTH * outlierSlack
		res.NewState = ResOutlier
	} else {
		res.NewState = ResIn
	}
	res.NewEnergy = energy
	return energy, e.hdd, e.bd
}
