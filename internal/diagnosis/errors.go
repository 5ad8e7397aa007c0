package diagnosis

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch indicates the classifier output and the label set are
	// out of sync. It is a deployment problem, not a bad request.
	ErrShapeMismatch = errors.New("diagnosis: output length does not match label count")

	// ErrInvalidLabels indicates a label set that must not be served.
	ErrInvalidLabels = errors.New("diagnosis: invalid label set")

	// ErrNonFiniteOutput indicates a NaN or infinite value in a raw output.
	ErrNonFiniteOutput = errors.New("diagnosis: raw output contains non-finite values")
)

// ShapeMismatchError reports the two lengths that disagreed.
type ShapeMismatchError struct {
	OutputLen int
	LabelLen  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("model output dimension (%d) does not match labels (%d)", e.OutputLen, e.LabelLen)
}

// Is lets errors.Is match ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// CheckShape returns a *ShapeMismatchError when the lengths differ.
func CheckShape(outputLen, labelLen int) error {
	if outputLen != labelLen {
		return &ShapeMismatchError{OutputLen: outputLen, LabelLen: labelLen}
	}
	return nil
}
