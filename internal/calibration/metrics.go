package calibration

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/paddy.report/internal/diagnosis"
)

// DefaultBins is the number of equal-width confidence bins used for ECE.
const DefaultBins = 10

// ReliabilityBin summarises the samples whose top-1 confidence fell in
// (Lower, Upper].
type ReliabilityBin struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Count      int     `json:"count"`
	Confidence float64 `json:"avg_confidence"`
	Accuracy   float64 `json:"accuracy"`
}

// Gap is |Confidence - Accuracy| for a non-empty bin.
func (b ReliabilityBin) Gap() float64 {
	if b.Count == 0 {
		return 0
	}
	return math.Abs(b.Confidence - b.Accuracy)
}

// ExpectedCalibrationError bins samples by top-1 confidence and returns
// Σ |avgConfidence − accuracy| × fraction over the bins, together with the
// per-bin statistics. A sample with confidence exactly 0 falls in no bin.
func ExpectedCalibrationError(probs [][]float64, labels []int, bins int) (float64, []ReliabilityBin) {
	if bins < 1 {
		bins = DefaultBins
	}
	out := make([]ReliabilityBin, bins)
	confSum := make([]float64, bins)
	hits := make([]int, bins)
	for b := range out {
		out[b].Lower = float64(b) / float64(bins)
		out[b].Upper = float64(b+1) / float64(bins)
	}
	if len(probs) == 0 {
		return 0, out
	}

	for i, p := range probs {
		pred := floats.MaxIdx(p)
		conf := p[pred]
		b := binIndex(conf, bins)
		if b < 0 {
			continue
		}
		out[b].Count++
		confSum[b] += conf
		if pred == labels[i] {
			hits[b]++
		}
	}

	var ece float64
	n := float64(len(probs))
	for b := range out {
		if out[b].Count == 0 {
			continue
		}
		c := float64(out[b].Count)
		out[b].Confidence = confSum[b] / c
		out[b].Accuracy = float64(hits[b]) / c
		ece += out[b].Gap() * c / n
	}
	return ece, out
}

// binIndex maps conf to the bin whose (lower, upper] interval holds it, or -1.
func binIndex(conf float64, bins int) int {
	if conf <= 0 || conf > 1 {
		return -1
	}
	b := int(math.Ceil(conf*float64(bins))) - 1
	// guard the float boundary so conf == upper stays in its bin
	if b+1 < bins && conf > float64(b+1)/float64(bins) {
		b++
	}
	if b > 0 && conf <= float64(b)/float64(bins) {
		b--
	}
	if b >= bins {
		b = bins - 1
	}
	return b
}

// NegativeLogLikelihood is the mean of −ln p[label] over the batch, with
// probabilities clamped to [1e-12, 1−1e-12].
func NegativeLogLikelihood(probs [][]float64, labels []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	var sum float64
	for i, p := range probs {
		sum += sampleNLL(p, labels[i])
	}
	return sum / float64(len(probs))
}

func sampleNLL(p []float64, label int) float64 {
	v := p[label]
	if v < diagnosis.Epsilon {
		v = diagnosis.Epsilon
	} else if v > 1-diagnosis.Epsilon {
		v = 1 - diagnosis.Epsilon
	}
	return -math.Log(v)
}
