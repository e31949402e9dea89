// Package monitor renders diagnostic reports over persisted trace records:
// an HTML convergence report (go-echarts) and PNG convergence plots
// (gonum/plot). Both read trace history from the sqlite store; neither
// touches the tracer itself.
package monitor

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	sqlite "github.com/banshee-data/depth.report/internal/dvo/storage/sqlite"
)

// maxChartPoints caps how many point series the session overview renders
// to keep the HTML payload reasonable.
const maxChartPoints = 50

// RenderSessionHTML writes an HTML report for a whole session: per-frame
// status counts and the inverse-depth interval width of each point over
// time.
func RenderSessionHTML(w io.Writer, sessionID string, recs []*sqlite.TraceRecord) error {
	if len(recs) == 0 {
		return fmt.Errorf("render session %s: no trace records", sessionID)
	}

	frames := frameOrder(recs)

	page := components.NewPage()
	page.PageTitle = "Depth Trace Session"
	page.AddCharts(
		statusBar(sessionID, frames, recs),
		intervalLines(sessionID, frames, recs),
	)
	return page.Render(w)
}

// RenderPointHTML writes an HTML convergence chart for a single point:
// inverse-depth bounds and reported pixel interval per frame.
func RenderPointHTML(w io.Writer, sessionID string, pointID int64, recs []*sqlite.TraceRecord) error {
	var pointRecs []*sqlite.TraceRecord
	for _, r := range recs {
		if r.PointID == pointID {
			pointRecs = append(pointRecs, r)
		}
	}
	if len(pointRecs) == 0 {
		return fmt.Errorf("render point %d: no trace records in session %s", pointID, sessionID)
	}

	xAxis := make([]string, 0, len(pointRecs))
	minSeries := make([]opts.LineData, 0, len(pointRecs))
	maxSeries := make([]opts.LineData, 0, len(pointRecs))
	intervalSeries := make([]opts.LineData, 0, len(pointRecs))
	for _, r := range pointRecs {
		xAxis = append(xAxis, r.FrameID)
		minSeries = append(minSeries, opts.LineData{Value: r.IdepthMin})
		if math.IsInf(r.IdepthMax, 1) {
			// Unbounded far depth renders as a gap.
			maxSeries = append(maxSeries, opts.LineData{Value: "-"})
		} else {
			maxSeries = append(maxSeries, opts.LineData{Value: r.IdepthMax})
		}
		intervalSeries = append(intervalSeries, opts.LineData{Value: r.PixelInterval})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Point Convergence", Width: "1100px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Point %d inverse-depth convergence", pointID),
			Subtitle: fmt.Sprintf("session=%s traces=%d", sessionID, len(pointRecs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis).
		AddSeries("idepth_min", minSeries).
		AddSeries("idepth_max", maxSeries).
		AddSeries("pixel_interval", intervalSeries)

	return line.Render(w)
}

// frameOrder returns frame IDs in first-seen (chronological) order.
func frameOrder(recs []*sqlite.TraceRecord) []string {
	seen := make(map[string]bool)
	var frames []string
	for _, r := range recs {
		if !seen[r.FrameID] {
			seen[r.FrameID] = true
			frames = append(frames, r.FrameID)
		}
	}
	return frames
}

func statusBar(sessionID string, frames []string, recs []*sqlite.TraceRecord) *charts.Bar {
	counts := make(map[string]map[string]int) // frame -> status -> n
	statusSet := make(map[string]bool)
	for _, r := range recs {
		if counts[r.FrameID] == nil {
			counts[r.FrameID] = make(map[string]int)
		}
		counts[r.FrameID][r.Status]++
		statusSet[r.Status] = true
	}
	statuses := make([]string, 0, len(statusSet))
	for s := range statusSet {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trace status per frame", Subtitle: "session=" + sessionID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(frames)
	for _, status := range statuses {
		data := make([]opts.BarData, 0, len(frames))
		for _, f := range frames {
			data = append(data, opts.BarData{Value: counts[f][status]})
		}
		bar.AddSeries(status, data)
	}
	return bar
}

func intervalLines(sessionID string, frames []string, recs []*sqlite.TraceRecord) *charts.Line {
	frameIdx := make(map[string]int, len(frames))
	for i, f := range frames {
		frameIdx[f] = i
	}

	byPoint := make(map[int64][]opts.LineData)
	var pointIDs []int64
	for _, r := range recs {
		if _, ok := byPoint[r.PointID]; !ok {
			if len(pointIDs) >= maxChartPoints {
				continue
			}
			byPoint[r.PointID] = emptySeries(len(frames))
			pointIDs = append(pointIDs, r.PointID)
		}
		byPoint[r.PointID][frameIdx[r.FrameID]] = opts.LineData{Value: r.PixelInterval}
	}
	sort.Slice(pointIDs, func(i, j int) bool { return pointIDs[i] < pointIDs[j] })

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1100px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pixel interval per point", Subtitle: "session=" + sessionID}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(frames)
	for _, id := range pointIDs {
		line.AddSeries(fmt.Sprintf("pt%d", id), byPoint[id])
	}
	return line
}

func emptySeries(n int) []opts.LineData {
	s := make([]opts.LineData, n)
	for i := range s {
		s[i] = opts.LineData{Value: "-"}
	}
	return s
}
