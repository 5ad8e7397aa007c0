package calibration

import (
	"fmt"
	"math"

	"github.com/banshee-data/paddy.report/internal/diagnosis"
)

// Sample is one labeled classifier output. RawOutput is treated as logits.
type Sample struct {
	RawOutput diagnosis.RawOutput `json:"raw_output" msgpack:"raw_output"`
	TrueLabel int                 `json:"label_index" msgpack:"label_index"`
}

func validateSamples(samples []Sample, labelCount int) error {
	if len(samples) == 0 {
		return ErrNoCalibrationData
	}
	if labelCount < diagnosis.MinLabels {
		return fmt.Errorf("%w: label count %d", diagnosis.ErrInvalidLabels, labelCount)
	}
	for i, s := range samples {
		if s.TrueLabel < 0 || s.TrueLabel >= labelCount {
			return &LabelIndexOutOfRangeError{Sample: i, Label: s.TrueLabel, LabelCount: labelCount}
		}
		if err := diagnosis.CheckShape(len(s.RawOutput), labelCount); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		for _, v := range s.RawOutput {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("sample %d: %w", i, diagnosis.ErrNonFiniteOutput)
			}
		}
	}
	return nil
}

func trueLabels(samples []Sample) []int {
	labels := make([]int, len(samples))
	for i, s := range samples {
		labels[i] = s.TrueLabel
	}
	return labels
}
