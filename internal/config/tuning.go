// Package config loads tracer tuning overrides from JSON files.
//
// The on-disk schema mirrors dvo.TraceConfig with every field optional, so
// one file can override any subset of the defaults. Absent fields keep
// their default values.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/depth.report/internal/dvo"
)

// TraceTuning is the JSON overlay for dvo.TraceConfig. Pointer fields
// distinguish "absent" from "explicitly zero".
type TraceTuning struct {
	MaxPixSearch          *float64 `json:"max_pix_search,omitempty"`
	StepSize              *float64 `json:"step_size,omitempty"`
	SlackInterval         *float64 `json:"slack_interval,omitempty"`
	MinImprovementFactor  *float64 `json:"min_improvement_factor,omitempty"`
	GNIterations          *int     `json:"gn_iterations,omitempty"`
	GNThreshold           *float64 `json:"gn_threshold,omitempty"`
	ExtraSlackOnTH        *float64 `json:"extra_slack_on_th,omitempty"`
	HuberTH               *float64 `json:"huber_th,omitempty"`
	TraceTestRadius       *int     `json:"trace_test_radius,omitempty"`
	OutlierTH             *float64 `json:"outlier_th,omitempty"`
	OutlierTHSumComponent *float64 `json:"outlier_th_sum_component,omitempty"`
	OverallEnergyTHWeight *float64 `json:"overall_energy_th_weight,omitempty"`
}

// LoadTraceTuning reads a tuning overlay from a JSON file.
func LoadTraceTuning(path string) (*TraceTuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var t TraceTuning
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return &t, nil
}

// Apply overlays the set fields onto cfg and returns the result.
func (t *TraceTuning) Apply(cfg dvo.TraceConfig) dvo.TraceConfig {
	if t == nil {
		return cfg
	}
	if t.MaxPixSearch != nil {
		cfg.MaxPixSearch = *t.MaxPixSearch
	}
	if t.StepSize != nil {
		cfg.StepSize = *t.StepSize
	}
	if t.SlackInterval != nil {
		cfg.SlackInterval = *t.SlackInterval
	}
	if t.MinImprovementFactor != nil {
		cfg.MinImprovementFactor = *t.MinImprovementFactor
	}
	if t.GNIterations != nil {
		cfg.GNIterations = *t.GNIterations
	}
	if t.GNThreshold != nil {
		cfg.GNThreshold = *t.GNThreshold
	}
	if t.ExtraSlackOnTH != nil {
		cfg.ExtraSlackOnTH = *t.ExtraSlackOnTH
	}
	if t.HuberTH != nil {
		cfg.HuberTH = *t.HuberTH
	}
	if t.TraceTestRadius != nil {
		cfg.TraceTestRadius = *t.TraceTestRadius
	}
	if t.OutlierTH != nil {
		cfg.OutlierTH = *t.OutlierTH
	}
	if t.OutlierTHSumComponent != nil {
		cfg.OutlierTHSumComponent = *t.OutlierTHSumComponent
	}
	if t.OverallEnergyTHWeight != nil {
		cfg.OverallEnergyTHWeight = *t.OverallEnergyTHWeight
	}
	return cfg
}
