package monitor

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	sqlite "github.com/banshee-data/depth.report/internal/dvo/storage/sqlite"
)

// SaveConvergencePNG writes a PNG plot of one point's inverse-depth bounds
// across frames. Frames where the far bound is still unbounded are plotted
// with the near bound only.
func SaveConvergencePNG(path string, pointID int64, recs []*sqlite.TraceRecord) error {
	var minPts, maxPts plotter.XYs
	i := 0
	for _, r := range recs {
		if r.PointID != pointID {
			continue
		}
		minPts = append(minPts, plotter.XY{X: float64(i), Y: r.IdepthMin})
		if !math.IsInf(r.IdepthMax, 1) {
			maxPts = append(maxPts, plotter.XY{X: float64(i), Y: r.IdepthMax})
		}
		i++
	}
	if len(minPts) == 0 {
		return fmt.Errorf("plot point %d: no trace records", pointID)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Point %d inverse-depth bounds", pointID)
	p.X.Label.Text = "trace #"
	p.Y.Label.Text = "inverse depth"

	minLine, err := plotter.NewLine(minPts)
	if err != nil {
		return fmt.Errorf("create idepth_min line: %w", err)
	}
	minLine.Width = vg.Points(1)
	p.Add(minLine)
	p.Legend.Add("idepth_min", minLine)

	if len(maxPts) > 0 {
		maxLine, err := plotter.NewLine(maxPts)
		if err != nil {
			return fmt.Errorf("create idepth_max line: %w", err)
		}
		maxLine.Width = vg.Points(1)
		maxLine.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
		p.Add(maxLine)
		p.Legend.Add("idepth_max", maxLine)
	}

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save convergence plot: %w", err)
	}
	return nil
}
