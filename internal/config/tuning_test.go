package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depth.report/internal/dvo"
)

func TestLoadTraceTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"huber_th": 12,
		"gn_iterations": 5,
		"max_pix_search": 0.05
	}`), 0o644))

	tuning, err := LoadTraceTuning(path)
	require.NoError(t, err)

	cfg := tuning.Apply(dvo.DefaultTraceConfig())
	assert.Equal(t, 12.0, cfg.HuberTH)
	assert.Equal(t, 5, cfg.GNIterations)
	assert.Equal(t, 0.05, cfg.MaxPixSearch)

	// Absent fields keep their defaults.
	def := dvo.DefaultTraceConfig()
	assert.Equal(t, def.StepSize, cfg.StepSize)
	assert.Equal(t, def.OutlierTH, cfg.OutlierTH)
	assert.Equal(t, def.SlackInterval, cfg.SlackInterval)
}

func TestLoadTraceTuningErrors(t *testing.T) {
	_, err := LoadTraceTuning(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = LoadTraceTuning(path)
	assert.Error(t, err)
}

func TestApplyNil(t *testing.T) {
	var tuning *TraceTuning
	def := dvo.DefaultTraceConfig()
	assert.Equal(t, def, tuning.Apply(def))
}

func TestExplicitZeroOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gn_iterations": 0}`), 0o644))

	tuning, err := LoadTraceTuning(path)
	require.NoError(t, err)

	cfg := tuning.Apply(dvo.DefaultTraceConfig())
	assert.Equal(t, 0, cfg.GNIterations)
}
