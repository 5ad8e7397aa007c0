package diagnosis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Epsilon floors every calibrated probability so downstream logs stay finite.
	Epsilon = 1e-12

	// logitSumTolerance is how far a non-negative vector may sum from 1 and
	// still be treated as probabilities.
	logitSumTolerance = 0.1
)

// RawOutput is one classifier output vector, one value per class.
type RawOutput []float64

// Distribution is a calibrated probability vector: non-negative, sums to 1
// within 1e-6 and floored at Epsilon.
type Distribution []float64

// EffectiveTemperature maps invalid temperatures (<= 0, NaN, Inf) to 1.0 so
// the online path always has a usable value.
func EffectiveTemperature(t float64) float64 {
	if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 1.0
	}
	return t
}

// IsLogits reports whether raw should be treated as unnormalized logits:
// it has a negative entry or its sum is more than 0.1 away from 1.
func IsLogits(raw []float64) bool {
	if hasNegative(raw) {
		return true
	}
	return math.Abs(floats.Sum(raw)-1) > logitSumTolerance
}

func hasNegative(xs []float64) bool {
	for _, x := range xs {
		if x < 0 {
			return true
		}
	}
	return false
}

// Softmax applies temperature-scaled softmax to logits. The maximum is
// subtracted before exponentiation for numerical stability.
func Softmax(logits []float64, temperature float64) Distribution {
	if len(logits) == 0 {
		return Distribution{}
	}
	t := EffectiveTemperature(temperature)

	// Shift before scaling so huge logits with a small T cannot reach Inf-Inf.
	m := floats.Max(logits)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp((v - m) / t)
	}
	floats.Scale(1/floats.Sum(out), out)
	return floor(out)
}

// Normalize produces a calibrated distribution from a raw output.
//
// Logits get a temperature-scaled softmax. Probability vectors are first
// renormalized by their sum; when the temperature is not 1.0 the log of the
// clamped probabilities is fed through the same softmax, which gives a
// milder correction than scaling the original logits would.
func Normalize(raw RawOutput, temperature float64) Distribution {
	if len(raw) == 0 {
		return Distribution{}
	}
	if IsLogits(raw) {
		return Softmax(raw, temperature)
	}

	probs := make([]float64, len(raw))
	copy(probs, raw)
	floats.Scale(1/floats.Sum(probs), probs)

	t := EffectiveTemperature(temperature)
	if t == 1.0 {
		return floor(probs)
	}

	logs := make([]float64, len(probs))
	for i, p := range probs {
		logs[i] = math.Log(math.Max(p, Epsilon))
	}
	return Softmax(logs, t)
}

// floor raises entries below Epsilon in place. The sum grows by at most
// len(p)*Epsilon, far inside the 1e-6 tolerance.
func floor(p []float64) Distribution {
	for i, v := range p {
		if v < Epsilon {
			p[i] = Epsilon
		}
	}
	return Distribution(p)
}

// Argmax returns the index of the largest probability. Ties resolve to the
// lowest index.
func (d Distribution) Argmax() int {
	if len(d) == 0 {
		return -1
	}
	return floats.MaxIdx(d)
}

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	return floats.Sum(d)
}
