package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedCalibrationError(t *testing.T) {
	t.Parallel()

	t.Run("two samples in two bins", func(t *testing.T) {
		probs := [][]float64{{0.8, 0.2}, {0.6, 0.4}}
		ece, bins := ExpectedCalibrationError(probs, []int{0, 1}, 10)
		assert.InDelta(t, 0.4, ece, 1e-12)
		require.Len(t, bins, 10)
		assert.Equal(t, 1, bins[7].Count)
		assert.Equal(t, 1.0, bins[7].Accuracy)
		assert.Equal(t, 1, bins[5].Count)
		assert.Equal(t, 0.0, bins[5].Accuracy)
		assert.InDelta(t, 0.6, bins[5].Confidence, 1e-12)
	})

	t.Run("perfectly calibrated", func(t *testing.T) {
		probs := [][]float64{{0.5, 0.5}, {0.5, 0.5}}
		ece, _ := ExpectedCalibrationError(probs, []int{0, 1}, 10)
		assert.InDelta(t, 0, ece, 1e-12)
	})

	t.Run("empty batch", func(t *testing.T) {
		ece, bins := ExpectedCalibrationError(nil, nil, 5)
		assert.Equal(t, 0.0, ece)
		assert.Len(t, bins, 5)
		assert.Equal(t, 1.0, bins[4].Upper)
	})

	t.Run("bins default", func(t *testing.T) {
		_, bins := ExpectedCalibrationError(nil, nil, 0)
		assert.Len(t, bins, DefaultBins)
	})
}

func TestBinIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		conf float64
		want int
	}{
		{0, -1},
		{1e-12, 0},
		{0.05, 0},
		{0.1, 0},
		{0.10000001, 1},
		{0.3, 2},
		{0.7, 6},
		{0.95, 9},
		{1.0, 9},
		{1.5, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, binIndex(tt.conf, 10), "conf=%v", tt.conf)
	}
}

func TestNegativeLogLikelihood(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, math.Log(2), NegativeLogLikelihood([][]float64{{0.5, 0.5}}, []int{0}), 1e-12)
	assert.InDelta(t, -math.Log(1e-12), NegativeLogLikelihood([][]float64{{1, 0}}, []int{1}), 1e-9)
	assert.InDelta(t, 0, NegativeLogLikelihood([][]float64{{1, 0}}, []int{0}), 1e-9)
	assert.Equal(t, 0.0, NegativeLogLikelihood(nil, nil))

	mixed := NegativeLogLikelihood([][]float64{{0.25, 0.75}, {0.5, 0.5}}, []int{1, 0})
	assert.InDelta(t, (-math.Log(0.75)+math.Log(2))/2, mixed, 1e-12)
}
