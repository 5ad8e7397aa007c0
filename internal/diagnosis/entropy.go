package diagnosis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Entropy returns the Shannon entropy (natural log) of dist after clamping
// each probability to [Epsilon, 1-Epsilon].
func Entropy(dist []float64) float64 {
	clamped := make([]float64, len(dist))
	for i, p := range dist {
		clamped[i] = math.Min(math.Max(p, Epsilon), 1-Epsilon)
	}
	return stat.Entropy(clamped)
}

// MaxEntropy is ln(n), the entropy of a uniform distribution over n classes.
func MaxEntropy(n int) float64 {
	if n < 2 {
		return 0
	}
	return math.Log(float64(n))
}

// EntropyRatio normalizes Entropy by MaxEntropy, giving a class-count
// independent uncertainty in [0,1]. 1 means uniform.
func EntropyRatio(dist []float64) float64 {
	maxEntropy := MaxEntropy(len(dist))
	if maxEntropy == 0 {
		return 0
	}
	ratio := Entropy(dist) / maxEntropy
	return math.Min(math.Max(ratio, 0), 1)
}
