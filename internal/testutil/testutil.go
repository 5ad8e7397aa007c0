// Package testutil provides shared test fixtures for the diagnosis and
// calibration packages.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertDistribution checks that p sums to 1 within tol and that no entry
// is below floor.
func AssertDistribution(t *testing.T, p []float64, tol, floor float64) {
	t.Helper()
	var sum float64
	for i, v := range p {
		if v < floor {
			t.Errorf("p[%d] = %g, below floor %g", i, v, floor)
		}
		sum += v
	}
	if math.Abs(sum-1) > tol {
		t.Errorf("sum = %.12f, want 1 ± %g", sum, tol)
	}
}

// OverconfidentLogits builds n logit vectors over classes whose softmax at
// T=1 puts exactly confidence on the predicted class, while only
// floor(n*accuracy) predictions match the returned true labels. Correct
// samples are spread evenly through the batch.
func OverconfidentLogits(n, classes int, accuracy, confidence float64) ([][]float64, []int) {
	peak := math.Log(confidence * float64(classes-1) / (1 - confidence))

	logits := make([][]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		truth := i % classes
		predicted := truth
		if math.Floor(float64(i+1)*accuracy) == math.Floor(float64(i)*accuracy) {
			predicted = (truth + 1) % classes
		}
		row := make([]float64, classes)
		row[predicted] = peak
		logits[i] = row
		labels[i] = truth
	}
	return logits, labels
}

// WriteFile writes content to name under dir, creating parent directories,
// and returns the full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
