package calibration

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/paddy.report/internal/fsutil"
)

// CurvePoint is one evaluated grid temperature.
type CurvePoint struct {
	Temperature float64 `json:"temperature"`
	NLL         float64 `json:"nll"`
}

// Result is the outcome of one Fit.
type Result struct {
	Temperature float64 `json:"temperature"`
	ECEBefore   float64 `json:"ece_before"`
	ECEAfter    float64 `json:"ece_after"`
	NLLBefore   float64 `json:"nll_before"`
	NLLAfter    float64 `json:"nll_after"`

	GridTemperature float64 `json:"grid_temperature"`
	GridNLL         float64 `json:"grid_nll"`
	Refined         bool    `json:"refined"`
	Refiner         string  `json:"refiner,omitempty"`

	SampleCount int `json:"sample_count"`
	LabelCount  int `json:"label_count"`

	BinsBefore []ReliabilityBin `json:"bins_before"`
	BinsAfter  []ReliabilityBin `json:"bins_after"`
	Curve      []CurvePoint     `json:"nll_curve"`

	CalibratedAt time.Time     `json:"calibrated_at"`
	Duration     time.Duration `json:"duration_ns"`
}

// Improvement is ECEBefore − ECEAfter. It is negative when calibration
// made ECE worse.
func (r Result) Improvement() float64 {
	return r.ECEBefore - r.ECEAfter
}

// Worsened reports a negative ECE improvement. NLL and ECE can disagree on
// small batches; the fitted temperature is still the NLL optimum.
func (r Result) Worsened() bool {
	return r.Improvement() < 0
}

// RecommendedTemperature is Temperature rounded to three decimals, the
// precision written back to configuration.
func (r Result) RecommendedTemperature() float64 {
	return math.Round(r.Temperature*1000) / 1000
}

type resultFile struct {
	Temperature    float64          `json:"temperature"`
	ECEBefore      float64          `json:"ece_before"`
	ECEAfter       float64          `json:"ece_after"`
	ECEImprovement float64          `json:"ece_improvement"`
	NLLBefore      float64          `json:"nll_before"`
	NLLAfter       float64          `json:"nll_after"`
	Refined        bool             `json:"refined"`
	SampleCount    int              `json:"sample_count"`
	CalibratedAt   string           `json:"calibrated_at"`
	Instructions   string           `json:"instructions"`
	ConfigUpdate   map[string]any   `json:"recommended_config_update"`
	Bins           []ReliabilityBin `json:"bins_after"`
}

// WriteResultFile saves the operator-facing summary of r as indented JSON.
func WriteResultFile(path string, r Result) error {
	rec := r.RecommendedTemperature()
	doc := resultFile{
		Temperature:    r.Temperature,
		ECEBefore:      r.ECEBefore,
		ECEAfter:       r.ECEAfter,
		ECEImprovement: r.Improvement(),
		NLLBefore:      r.NLLBefore,
		NLLAfter:       r.NLLAfter,
		Refined:        r.Refined,
		SampleCount:    r.SampleCount,
		CalibratedAt:   r.CalibratedAt.UTC().Format(time.RFC3339),
		Instructions:   fmt.Sprintf("set \"temperature\": %.3f in the diagnosis config, or rerun calibrate with --apply", rec),
		ConfigUpdate:   map[string]any{"temperature": rec},
		Bins:           r.BinsAfter,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration result: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write calibration result %s: %w", path, err)
	}
	return nil
}
