package monitor

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlite "github.com/banshee-data/depth.report/internal/dvo/storage/sqlite"
)

func sampleRecords() []*sqlite.TraceRecord {
	return []*sqlite.TraceRecord{
		{SessionID: "s1", PointID: 1, FrameID: "f1", Status: "good", IdepthMin: 0.1, IdepthMax: math.Inf(1), PixelInterval: 20, TSUnixNanos: 1},
		{SessionID: "s1", PointID: 1, FrameID: "f2", Status: "good", IdepthMin: 0.4, IdepthMax: 0.6, PixelInterval: 2.5, TSUnixNanos: 2},
		{SessionID: "s1", PointID: 1, FrameID: "f3", Status: "skipped", IdepthMin: 0.45, IdepthMax: 0.55, PixelInterval: 1.1, TSUnixNanos: 3},
		{SessionID: "s1", PointID: 2, FrameID: "f1", Status: "outlier", IdepthMin: 0, IdepthMax: math.Inf(1), TSUnixNanos: 1},
		{SessionID: "s1", PointID: 2, FrameID: "f2", Status: "oob", IdepthMin: 0, IdepthMax: math.Inf(1), TSUnixNanos: 2},
	}
}

func TestRenderSessionHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderSessionHTML(&buf, "s1", sampleRecords()))

	html := buf.String()
	assert.Contains(t, html, "Trace status per frame")
	assert.Contains(t, html, "Pixel interval per point")
	assert.Contains(t, html, "s1")
}

func TestRenderSessionHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderSessionHTML(&buf, "s1", nil))
}

func TestRenderPointHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPointHTML(&buf, "s1", 1, sampleRecords()))

	html := buf.String()
	assert.Contains(t, html, "idepth_min")
	assert.Contains(t, html, "idepth_max")
	assert.Contains(t, html, "pixel_interval")
}

func TestRenderPointHTMLUnknownPoint(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, RenderPointHTML(&buf, "s1", 99, sampleRecords()))
}

func TestFrameOrder(t *testing.T) {
	frames := frameOrder(sampleRecords())
	assert.Equal(t, []string{"f1", "f2", "f3"}, frames)
}

func TestSaveConvergencePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "point1.png")
	require.NoError(t, SaveConvergencePNG(path, 1, sampleRecords()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.True(t, strings.HasSuffix(path, ".png"))
}

func TestSaveConvergencePNGNoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.png")
	assert.Error(t, SaveConvergencePNG(path, 99, nil))
}
