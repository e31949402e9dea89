package dvo

import (
	"runtime"
	"sync"

	"github.com/banshee-data/depth.report/internal/camera"
	"github.com/banshee-data/depth.report/internal/frame"
)

// TraceSummary counts trace outcomes over a point set for one frame.
type TraceSummary struct {
	Good         int
	Skipped      int
	BadCondition int
	Outlier      int
	OOB          int
	Invalid      int
}

func (s *TraceSummary) add(status Status) {
	switch status {
	case StatusGood:
		s.Good++
	case StatusSkipped:
		s.Skipped++
	case StatusBadCondition:
		s.BadCondition++
	case StatusOutlier:
		s.Outlier++
	case StatusOOB:
		s.OOB++
	}
}

// Traced returns how many points were actually traced this frame.
func (s TraceSummary) Traced() int {
	return s.Good + s.Skipped + s.BadCondition + s.Outlier + s.OOB
}

// TraceAll runs Trace for every point against the target frame, fanning
// out across up to `workers` goroutines (GOMAXPROCS when workers <= 0).
// Distinct points share no mutable state, so no locking is needed beyond
// merging the per-worker summaries. Invalid points are skipped and counted.
func TraceAll(points []*Point, target *frame.Frame, pc camera.Precalc, cfg TraceConfig, workers int) TraceSummary {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(points) {
		workers = len(points)
	}
	if workers <= 1 {
		var s TraceSummary
		for _, p := range points {
			if !p.Valid {
				s.Invalid++
				continue
			}
			s.add(Trace(p, target, pc, cfg))
		}
		return s
	}

	var (
		mu      sync.Mutex
		summary TraceSummary
		wg      sync.WaitGroup
	)
	idx := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local TraceSummary
			for i := range idx {
				p := points[i]
				if !p.Valid {
					local.Invalid++
					continue
				}
				local.add(Trace(p, target, pc, cfg))
			}
			mu.Lock()
			summary.Good += local.Good
			summary.Skipped += local.Skipped
			summary.BadCondition += local.BadCondition
			summary.Outlier += local.Outlier
			summary.OOB += local.OOB
			summary.Invalid += local.Invalid
			mu.Unlock()
		}()
	}

	for i := range points {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return summary
}
