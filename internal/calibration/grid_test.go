package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateGrid(t *testing.T) {
	t.Parallel()

	grid := generateGrid(DefaultGridStart, DefaultGridEnd, DefaultGridPoints)
	assert.Len(t, grid, 60)
	assert.Equal(t, 0.05, grid[0])
	assert.Equal(t, 3.0, grid[59])
	assert.InDelta(t, 1.0, grid[19], 1e-12)
	for i := 1; i < len(grid); i++ {
		assert.InDelta(t, 0.05, grid[i]-grid[i-1], 1e-12)
	}

	assert.Equal(t, []float64{1.5}, generateGrid(1, 2, 1))
	assert.Empty(t, generateGrid(1, 2, 0))
	assert.Len(t, generateGrid(0, 1, maxGridPoints+5), maxGridPoints)
}

func TestArgmin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, argmin([]float64{3, 1, 2, 1}))
	assert.Equal(t, 2, argmin([]float64{math.NaN(), 5, 4}))
	assert.Equal(t, -1, argmin(nil))
}

func TestNarrowBounds(t *testing.T) {
	t.Parallel()

	lo, hi := narrowBounds([]float64{1.2, 1.4, 1.3}, 11, 0.05, 3.0)
	assert.InDelta(t, 1.18, lo, 1e-12)
	assert.InDelta(t, 1.42, hi, 1e-12)

	lo, hi = narrowBounds([]float64{2.0}, 11, 0.05, 3.0)
	assert.InDelta(t, 1.9, lo, 1e-12)
	assert.InDelta(t, 2.1, hi, 1e-12)

	lo, hi = narrowBounds([]float64{0.05, 0.06}, 2, 0.05, 3.0)
	assert.Equal(t, 0.05, lo)
	assert.InDelta(t, 0.07, hi, 1e-12)

	lo, hi = narrowBounds(nil, 11, 0.05, 3.0)
	assert.Equal(t, 0.05, lo)
	assert.Equal(t, 3.0, hi)
}
