package calibration

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCalibrationData is returned by Fit for an empty batch.
	ErrNoCalibrationData = errors.New("calibration: no data to calibrate")

	// ErrLabelOutOfRange matches *LabelIndexOutOfRangeError.
	ErrLabelOutOfRange = errors.New("calibration: true label out of range")
)

// LabelIndexOutOfRangeError reports a sample whose true label is not a valid
// class index.
type LabelIndexOutOfRangeError struct {
	Sample     int
	Label      int
	LabelCount int
}

func (e *LabelIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("sample %d: true label %d outside [0, %d)", e.Sample, e.Label, e.LabelCount)
}

// Is lets errors.Is match ErrLabelOutOfRange.
func (e *LabelIndexOutOfRangeError) Is(target error) bool {
	return target == ErrLabelOutOfRange
}
