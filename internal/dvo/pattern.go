// Package dvo implements the depth-estimation core of a direct visual
// odometry pipeline: candidate points selected in a host frame carry an
// inverse-depth interval that is narrowed by searching along the epipolar
// line in each subsequently arriving frame, and later supply the
// single-parameter residual and derivative used by the joint optimizer.
//
// All operations are synchronous and deterministic; distinct points share
// no mutable state, so the caller may trace or linearize them concurrently.
package dvo

// PatternSize is the number of offsets in the residual sampling pattern.
const PatternSize = 8

// Pattern is the fixed sampling footprint shared by every point: eight
// (dx, dy) pixel offsets around the point, spanning a 5x5 neighbourhood.
var Pattern = [PatternSize][2]int{
	{0, -2},
	{-1, -1},
	{1, -1},
	{-2, 0},
	{0, 0},
	{2, 0},
	{-1, 1},
	{0, 2},
}
