package domain

import "math"

// ComputePosition returns the ordering key for an item inserted at index
// into a list of destLen items, given the positions of its immediate
// neighbors. Either neighbor may be nil.
//
// When both neighbors exist the result is their midpoint, floored when
// fractional. Flooring trades subdivision precision for simplicity:
// repeated insertions between the same neighbors eventually collide at
// integer resolution, and no renumbering pass exists. Sort order stays
// deterministic through the secondary id tiebreak.
func ComputePosition(destLen, index int, before, after *float64) float64 {
	_ = index
	if before != nil && after != nil {
		mid := (*before + *after) / 2
		if mid == math.Trunc(mid) {
			return mid
		}
		return math.Floor(mid)
	}
	if after != nil {
		return math.Max(0, *after-10)
	}
	if before != nil {
		return *before + 10
	}
	if destLen == 0 {
		return 0
	}
	return float64(destLen) * 10
}
