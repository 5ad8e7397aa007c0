package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertDistribution(t *testing.T) {
	t.Parallel()
	AssertDistribution(t, []float64{0.25, 0.25, 0.5}, 1e-9, 0)
}

func TestOverconfidentLogits(t *testing.T) {
	t.Parallel()

	logits, labels := OverconfidentLogits(100, 4, 0.7, 0.95)
	if len(logits) != 100 || len(labels) != 100 {
		t.Fatalf("got %d logits, %d labels, want 100 each", len(logits), len(labels))
	}

	correct := 0
	for i, row := range logits {
		// softmax of a single peak over zeros
		sum := 0.0
		for _, v := range row {
			sum += math.Exp(v)
		}
		best := 0
		for j, v := range row {
			if v > row[best] {
				best = j
			}
		}
		if top := math.Exp(row[best]) / sum; math.Abs(top-0.95) > 1e-9 {
			t.Fatalf("sample %d top confidence = %f, want 0.95", i, top)
		}
		if best == labels[i] {
			correct++
		}
	}
	if correct != 70 {
		t.Errorf("correct = %d, want 70", correct)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := WriteFile(t, dir, filepath.Join("a", "b.txt"), []byte("x"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("content = %q, want %q", data, "x")
	}
}
