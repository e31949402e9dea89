package dvo

// Status is the lifecycle state of a point's trace.
type Status string

const (
	// StatusUninitialized means the point has never been traced.
	StatusUninitialized Status = "uninitialized"
	// StatusGood means the last trace narrowed the inverse-depth interval.
	StatusGood Status = "good"
	// StatusOOB means the point projected out of bounds. Terminal.
	StatusOOB Status = "oob"
	// StatusOutlier means the last trace failed the energy gate. One more
	// consecutive outlier observation escalates to StatusOOB.
	StatusOutlier Status = "outlier"
	// StatusSkipped means the interval was already tight enough to leave be.
	StatusSkipped Status = "skipped"
	// StatusBadCondition means the local texture cannot narrow the interval
	// any further along the current epipolar direction.
	StatusBadCondition Status = "bad_condition"
)

// Observation is the raw classification of a single trace attempt, before
// the status machine applies terminality and hysteresis.
type Observation string

const (
	ObserveGood         Observation = "good"
	ObserveOOB          Observation = "oob"
	ObserveOutlier      Observation = "outlier"
	ObserveSkipped      Observation = "skipped"
	ObserveBadCondition Observation = "bad_condition"
)

// NextStatus applies the trace status machine: OOB is terminal, and a second
// consecutive outlier observation abandons the point (OUTLIER → OOB). All
// other observations map directly onto their status.
func NextStatus(current Status, obs Observation) Status {
	if current == StatusOOB {
		return StatusOOB
	}
	switch obs {
	case ObserveGood:
		return StatusGood
	case ObserveOOB:
		return StatusOOB
	case ObserveOutlier:
		if current == StatusOutlier {
			return StatusOOB
		}
		return StatusOutlier
	case ObserveSkipped:
		return StatusSkipped
	case ObserveBadCondition:
		return StatusBadCondition
	}
	return current
}
