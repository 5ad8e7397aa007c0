package calibration

import "math"

// Grid defaults.
const (
	DefaultGridStart  = 0.05
	DefaultGridEnd    = 3.0
	DefaultGridPoints = 60

	// maxGridPoints bounds allocation for config-supplied grids.
	maxGridPoints = 10000
)

// generateGrid creates n evenly-spaced values between start and end (inclusive).
func generateGrid(start, end float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{(start + end) / 2.0}
	}
	if n > maxGridPoints {
		n = maxGridPoints
	}

	grid := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := 0; i < n; i++ {
		grid[i] = start + step*float64(i)
	}
	// avoid drift on the last point
	grid[n-1] = end
	return grid
}

// argmin returns the index of the first minimum in values; later equal
// values do not replace it. NaN entries are skipped.
func argmin(values []float64) int {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < values[best] {
			best = i
		}
	}
	return best
}

// narrowBounds computes a narrowed search window from the best-scoring
// values: their span plus one step on each side, clipped to [lo, hi].
func narrowBounds(best []float64, points int, lo, hi float64) (start, end float64) {
	if len(best) == 0 {
		return lo, hi
	}
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range best {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}

	var margin float64
	if minVal == maxVal {
		margin = math.Max(math.Abs(minVal)*singleValueMarginRatio, minMargin)
	} else {
		margin = (maxVal - minVal) / float64(points-1)
	}
	return math.Max(lo, minVal-margin), math.Min(hi, maxVal+margin)
}

const (
	singleValueMarginRatio = 0.05
	minMargin              = 1e-4
)
