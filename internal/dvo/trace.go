package dvo

import (
	"math"

	"github.com/banshee-data/depth.report/internal/camera"
	"github.com/banshee-data/depth.report/internal/frame"
)

// Trace searches the epipolar segment of p in the target frame and narrows
// the point's inverse-depth interval. It is called at most once per
// (point, newly available frame) and mutates the point's interval, status,
// quality, and last-match diagnostics. The returned status equals p.Status
// afterwards. A point already out of bounds is returned untouched.
func Trace(p *Point, target *frame.Frame, pc camera.Precalc, cfg TraceConfig) Status {
	if p.Status == StatusOOB {
		return StatusOOB
	}
	if !p.Valid {
		return p.Status
	}

	w := float64(target.Width(0))
	h := float64(target.Height(0))
	margin := float64(TraceBorderMargin)
	inBounds := func(x, y float64) bool {
		return x > margin-1 && y > margin-1 && x < w-margin && y < h-margin
	}
	fail := func(obs Observation) Status {
		p.LastTraceU, p.LastTraceV = -1, -1
		p.LastTracePixelInterval = 0
		p.Status = NextStatus(p.Status, obs)
		return p.Status
	}
	leave := func(obs Observation, u, v, interval float64) Status {
		p.LastTraceU, p.LastTraceV = u, v
		p.LastTracePixelInterval = interval
		p.Status = NextStatus(p.Status, obs)
		return p.Status
	}

	maxPixSearch := (w + h) * cfg.MaxPixSearch

	// Project the near bound of the interval.
	pr := pc.KRKi.MulVec(camera.Vec3{p.U, p.V, 1})
	ptpMin := pr.Add(pc.Kt.Scale(p.IdepthMin))
	uMin := ptpMin[0] / ptpMin[2]
	vMin := ptpMin[1] / ptpMin[2]
	if !inBounds(uMin, vMin) {
		return fail(ObserveOOB)
	}

	// Project the far bound, or synthesise one along the epipolar direction
	// when the far bound is still unknown.
	var dist, uMax, vMax float64
	boundedMax := !math.IsInf(p.IdepthMax, 1)
	if boundedMax {
		ptpMax := pr.Add(pc.Kt.Scale(p.IdepthMax))
		uMax = ptpMax[0] / ptpMax[2]
		vMax = ptpMax[1] / ptpMax[2]
		if !inBounds(uMax, vMax) {
			return fail(ObserveOOB)
		}

		dist = math.Hypot(uMin-uMax, vMin-vMax)
		if dist < cfg.SlackInterval {
			// Interval already tight enough; leave it be.
			return leave(ObserveSkipped, 0.5*(uMax+uMin), 0.5*(vMax+vMin), dist)
		}
	} else {
		dist = maxPixSearch

		// Project at a small nominal inverse depth purely for direction.
		ptpMax := pr.Add(pc.Kt.Scale(0.01))
		uMax = ptpMax[0] / ptpMax[2]
		vMax = ptpMax[1] / ptpMax[2]

		ddx := uMax - uMin
		ddy := vMax - vMin
		norm := 1 / math.Sqrt(ddx*ddx+ddy*ddy)
		uMax = uMin + dist*ddx*norm
		vMax = vMin + dist*ddy*norm

		if !inBounds(uMax, vMax) {
			return fail(ObserveOOB)
		}
	}

	// Matching is unreliable under large depth-scale change, unless the
	// interval is still fully unconstrained.
	if !(p.IdepthMin < 0 || (ptpMin[2] > 0.75 && ptpMin[2] < 1.5)) {
		return fail(ObserveOOB)
	}

	// Achievable pixel accuracy from the structure tensor: decompose the
	// (step-scaled) search direction into along-track and cross-track
	// quadratic forms.
	dx := cfg.StepSize * (uMax - uMin)
	dy := cfg.StepSize * (vMax - vMin)
	a := p.GradH.Quad(dx, dy)
	b := p.GradH.Quad(dy, -dx)
	errorInPixel := 0.2 + 0.2*(a+b)/a

	if errorInPixel*cfg.MinImprovementFactor > dist && boundedMax {
		// No meaningful narrowing achievable with this texture.
		return leave(ObserveBadCondition, 0.5*(uMax+uMin), 0.5*(vMax+vMin), dist)
	}
	if errorInPixel > 10 {
		errorInPixel = 10
	}

	dx /= dist
	dy /= dist
	if !isFinite(dx) || !isFinite(dy) {
		return fail(ObserveOOB)
	}

	if dist > maxPixSearch {
		uMax = uMin + maxPixSearch*dx
		vMax = vMin + maxPixSearch*dy
		dist = maxPixSearch
	}

	numSteps := int(1.9999 + dist/cfg.StepSize)
	if numSteps >= MaxSearchSteps {
		numSteps = MaxSearchSteps - 1
	}

	// Rotate the pattern into the target frame's local orientation.
	ra, rb, rc, rd := pc.KRKi.TopLeft2()
	var rotated [PatternSize][2]float64
	for idx := range Pattern {
		px, py := float64(Pattern[idx][0]), float64(Pattern[idx][1])
		rotated[idx][0] = ra*px + rb*py
		rotated[idx][1] = rc*px + rd*py
	}

	// Deterministic sub-pixel dither along the line, derived from uMin, to
	// decorrelate discretization artifacts across points.
	randShift := uMin*1000 - math.Floor(uMin*1000)
	ptx := uMin - randShift*dx
	pty := vMin - randShift*dy

	var energies [MaxSearchSteps]float64
	bestU, bestV := 0.0, 0.0
	bestEnergy := SentinelEnergy
	bestIdx := -1
	for i := 0; i < numSteps; i++ {
		energy := 0.0
		for idx := 0; idx < PatternSize; idx++ {
			s, ok := target.Sample(0, ptx+rotated[idx][0], pty+rotated[idx][1])
			if !ok {
				energy += BadSampleEnergy
				continue
			}
			residual := s.Intensity - (pc.Aff.A*p.Color[idx] + pc.Aff.B)
			hw := huberWeight(residual, cfg.HuberTH)
			energy += hw * residual * residual * (2 - hw)
		}

		energies[i] = energy
		if energy < bestEnergy {
			bestU, bestV, bestEnergy, bestIdx = ptx, pty, energy, i
		}

		ptx += dx
		pty += dy
	}

	// Best energy outside a radius around the best step measures ambiguity.
	secondBest := SentinelEnergy
	for i := 0; i < numSteps; i++ {
		if (i < bestIdx-cfg.TraceTestRadius || i > bestIdx+cfg.TraceTestRadius) && energies[i] < secondBest {
			secondBest = energies[i]
		}
	}
	newQuality := secondBest / bestEnergy
	if newQuality < p.Quality || numSteps > 10 {
		// A long search is a fresh estimate, not comparable to the old one.
		p.Quality = newQuality
	}

	// Bounded 1-D Gauss-Newton refinement along the fixed search line.
	uBak, vBak := bestU, bestV
	stepBack := 0.0
	if cfg.GNIterations > 0 {
		bestEnergy = 1e5
	}
	for it := 0; it < cfg.GNIterations; it++ {
		hGN, bGN, energy := 1.0, 0.0, 0.0
		for idx := 0; idx < PatternSize; idx++ {
			s, ok := target.Sample(0, bestU+rotated[idx][0], bestV+rotated[idx][1])
			if !ok {
				energy += BadSampleEnergy
				continue
			}
			residual := s.Intensity - (pc.Aff.A*p.Color[idx] + pc.Aff.B)
			dResdDist := dx*s.GradX + dy*s.GradY
			hw := huberWeight(residual, cfg.HuberTH)

			hGN += hw * dResdDist * dResdDist
			bGN += hw * residual * dResdDist
			energy += p.Weights[idx] * p.Weights[idx] * hw * residual * residual * (2 - hw)
		}

		if energy > bestEnergy {
			// Worse than where we came from: halve the previous step and
			// retry from the old point instead of taking the gradient step.
			stepBack *= 0.5
			bestU = uBak + stepBack*dx
			bestV = vBak + stepBack*dy
		} else {
			step := -bGN / hGN
			if step < -0.5 {
				step = -0.5
			} else if step > 0.5 {
				step = 0.5
			}
			if !isFinite(step) {
				step = 0
			}

			uBak, vBak = bestU, bestV
			stepBack = step
			bestU += step * dx
			bestV += step * dy
			bestEnergy = energy
		}

		if math.Abs(stepBack) < cfg.GNThreshold {
			break
		}
	}

	// Energy gate. A first failure is forgiven; the second in a row
	// abandons the point (handled by the status machine).
	if !(bestEnergy < p.EnergyTH*cfg.ExtraSlackOnTH) {
		return fail(ObserveOutlier)
	}

	// Re-derive the inverse-depth interval by pushing the ±errorInPixel
	// window around the match back through the projection, on whichever
	// axis moved more. Ties prefer the horizontal axis.
	var idMin, idMax float64
	if dx*dx >= dy*dy {
		idMin = (pr[2]*(bestU-errorInPixel*dx) - pr[0]) / (pc.Kt[0] - pc.Kt[2]*(bestU-errorInPixel*dx))
		idMax = (pr[2]*(bestU+errorInPixel*dx) - pr[0]) / (pc.Kt[0] - pc.Kt[2]*(bestU+errorInPixel*dx))
	} else {
		idMin = (pr[2]*(bestV-errorInPixel*dy) - pr[1]) / (pc.Kt[1] - pc.Kt[2]*(bestV-errorInPixel*dy))
		idMax = (pr[2]*(bestV+errorInPixel*dy) - pr[1]) / (pc.Kt[1] - pc.Kt[2]*(bestV+errorInPixel*dy))
	}
	if idMin > idMax {
		idMin, idMax = idMax, idMin
	}
	if !isFinite(idMin) || !isFinite(idMax) || idMax < 0 {
		// Recoverable on the next frame: this does not count toward the
		// two-strikes escalation the energy gate uses.
		p.LastTraceU, p.LastTraceV = -1, -1
		p.LastTracePixelInterval = 0
		p.Status = StatusOutlier
		return p.Status
	}

	p.IdepthMin = idMin
	p.IdepthMax = idMax
	return leave(ObserveGood, bestU, bestV, 2*errorInPixel)
}

// huberWeight is the Huber influence weight: 1 inside the threshold,
// th/|r| outside.
func huberWeight(residual, th float64) float64 {
	if math.Abs(residual) < th {
		return 1
	}
	return th / math.Abs(residual)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
