package dvo

// Constants for tracer internals.
const (
	// MaxSearchSteps is the hard cap on discrete search steps per trace.
	// This is a contract: the per-step energy buffer is sized to it.
	MaxSearchSteps = 100

	// BadSampleEnergy is charged for an unsampleable pixel during search,
	// keeping the search robust to isolated bad samples.
	BadSampleEnergy = 1e5

	// SentinelEnergy marks a residual evaluation that failed outright.
	SentinelEnergy = 1e10

	// MaxQuality is the initial "best possible" match ambiguity ratio.
	MaxQuality = 10000

	// TraceBorderMargin is the pixel margin inside the target image that a
	// projected point must respect; outside it the trace is out of bounds.
	TraceBorderMargin = 5
)

// TraceConfig holds the tuning constants for tracing and linearization.
// It is an immutable value threaded through every call; the tracer and
// linearizer read but never mutate it.
type TraceConfig struct {
	MaxPixSearch          float64 // search segment budget as fraction of (width+height)
	StepSize              float64 // discrete search step in pixels
	SlackInterval         float64 // pixel interval below which the trace is skipped
	MinImprovementFactor  float64 // required ratio of interval to achievable error
	GNIterations          int     // max 1-D Gauss-Newton refinement iterations
	GNThreshold           float64 // stop refinement below this step size (pixels)
	ExtraSlackOnTH        float64 // relaxation factor on the outlier energy gate
	HuberTH               float64 // Huber threshold on intensity residuals
	TraceTestRadius       int     // steps excluded around the best match for the ambiguity test
	OutlierTH             float64 // per-residual outlier energy base
	OutlierTHSumComponent float64 // gradient down-weight constant for pattern weights
	OverallEnergyTHWeight float64 // global (squared) weighting on the energy budget
}

// DefaultTraceConfig returns the standard tracer tuning.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		MaxPixSearch:          0.027,
		StepSize:              1.0,
		SlackInterval:         1.5,
		MinImprovementFactor:  2.0,
		GNIterations:          3,
		GNThreshold:           0.1,
		ExtraSlackOnTH:        1.2,
		HuberTH:               9,
		TraceTestRadius:       2,
		OutlierTH:             12 * 12,
		OutlierTHSumComponent: 50 * 50,
		OverallEnergyTHWeight: 1,
	}
}
