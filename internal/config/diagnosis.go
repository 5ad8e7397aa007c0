package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/security"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/diagnosis.defaults.json"

// Accepted ranges.
const (
	MinTemperature = 0.1
	MaxTemperature = 10.0
	MaxGridPoints  = 10000
)

// DiagnosisConfig holds the diagnosis and calibration settings. Every field
// is optional; the Get* accessors supply defaults for absent fields, so
// partial files are safe.
type DiagnosisConfig struct {
	// Calibration snapshot
	Temperature         *float64 `json:"temperature,omitempty" toml:"temperature,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" toml:"confidence_threshold,omitempty"`
	ConfidenceMargin    *float64 `json:"confidence_margin,omitempty" toml:"confidence_margin,omitempty"`

	// Decision policy
	LowEntropyMax            *float64 `json:"low_entropy_max,omitempty" toml:"low_entropy_max,omitempty"`
	OverrideConfidence       *float64 `json:"override_confidence,omitempty" toml:"override_confidence,omitempty"`
	VetoConfidence           *float64 `json:"veto_confidence,omitempty" toml:"veto_confidence,omitempty"`
	VetoEntropy              *float64 `json:"veto_entropy,omitempty" toml:"veto_entropy,omitempty"`
	AlternativeMinConfidence *float64 `json:"alternative_min_confidence,omitempty" toml:"alternative_min_confidence,omitempty"`
	TopK                     *int     `json:"top_k,omitempty" toml:"top_k,omitempty"`

	LabelsPath *string `json:"labels_path,omitempty" toml:"labels_path,omitempty"`

	// Offline calibration
	GridStart  *float64 `json:"grid_start,omitempty" toml:"grid_start,omitempty"`
	GridEnd    *float64 `json:"grid_end,omitempty" toml:"grid_end,omitempty"`
	GridPoints *int     `json:"grid_points,omitempty" toml:"grid_points,omitempty"`
	ECEBins    *int     `json:"ece_bins,omitempty" toml:"ece_bins,omitempty"`
	Workers    *int     `json:"workers,omitempty" toml:"workers,omitempty"`
	Refine     *string  `json:"refine,omitempty" toml:"refine,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyConfig returns a DiagnosisConfig with every field unset.
func EmptyConfig() *DiagnosisConfig {
	return &DiagnosisConfig{}
}

// DefaultConfig returns a config with every field set to its default.
func DefaultConfig() *DiagnosisConfig {
	p, pol := diagnosis.DefaultParams(), diagnosis.DefaultPolicy()
	return &DiagnosisConfig{
		Temperature:              ptrFloat64(p.Temperature),
		ConfidenceThreshold:      ptrFloat64(p.ConfidenceThreshold),
		ConfidenceMargin:         ptrFloat64(p.ConfidenceMargin),
		LowEntropyMax:            ptrFloat64(pol.LowEntropyMax),
		OverrideConfidence:       ptrFloat64(pol.OverrideConfidence),
		VetoConfidence:           ptrFloat64(pol.VetoConfidence),
		VetoEntropy:              ptrFloat64(pol.VetoEntropy),
		AlternativeMinConfidence: ptrFloat64(pol.AlternativeMinConfidence),
		TopK:                     ptrInt(pol.TopK),
		LabelsPath:               ptrString(DefaultLabelsPath),
		GridStart:                ptrFloat64(calibration.DefaultGridStart),
		GridEnd:                  ptrFloat64(calibration.DefaultGridEnd),
		GridPoints:               ptrInt(calibration.DefaultGridPoints),
		ECEBins:                  ptrInt(calibration.DefaultBins),
		Workers:                  ptrInt(0),
		Refine:                   ptrString(calibration.RefineNelderMead),
	}
}

// LoadConfig reads a .json or .toml config file. The file is size-checked
// and validated; omitted fields keep their defaults.
func LoadConfig(path string) (*DiagnosisConfig, error) {
	cleanPath, err := security.CheckInputFile(path, []string{".json", ".toml"}, security.MaxInputFileSize)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := decodeFile(cleanPath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, v); err != nil {
			return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
	default:
		data, err := readFile(path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return nil
}

func checkUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

// Validate checks the ranges of every set field.
func (c *DiagnosisConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < MinTemperature || *c.Temperature > MaxTemperature) {
		return fmt.Errorf("temperature must be between %.1f and %.1f, got %f", MinTemperature, MaxTemperature, *c.Temperature)
	}

	units := []struct {
		name string
		v    *float64
	}{
		{"confidence_threshold", c.ConfidenceThreshold},
		{"confidence_margin", c.ConfidenceMargin},
		{"low_entropy_max", c.LowEntropyMax},
		{"override_confidence", c.OverrideConfidence},
		{"veto_confidence", c.VetoConfidence},
		{"veto_entropy", c.VetoEntropy},
		{"alternative_min_confidence", c.AlternativeMinConfidence},
	}
	for _, u := range units {
		if err := checkUnit(u.name, u.v); err != nil {
			return err
		}
	}

	if c.TopK != nil && (*c.TopK < 2 || *c.TopK > diagnosis.MaxLabels) {
		return fmt.Errorf("top_k must be between 2 and %d, got %d", diagnosis.MaxLabels, *c.TopK)
	}
	if c.LabelsPath != nil && filepath.Ext(*c.LabelsPath) != ".txt" {
		return fmt.Errorf("labels_path must have .txt extension, got %q", *c.LabelsPath)
	}

	start, end, points := c.GetGridStart(), c.GetGridEnd(), c.GetGridPoints()
	if start <= 0 {
		return fmt.Errorf("grid_start must be positive, got %f", start)
	}
	if end <= start {
		return fmt.Errorf("grid_end (%f) must be greater than grid_start (%f)", end, start)
	}
	if points < 2 || points > MaxGridPoints {
		return fmt.Errorf("grid_points must be between 2 and %d, got %d", MaxGridPoints, points)
	}
	if c.ECEBins != nil && *c.ECEBins < 1 {
		return fmt.Errorf("ece_bins must be at least 1, got %d", *c.ECEBins)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if _, err := calibration.NewRefiner(c.GetRefine()); err != nil {
		return err
	}
	return nil
}

// Params builds the immutable calibration snapshot for the online path.
func (c *DiagnosisConfig) Params() diagnosis.Params {
	return diagnosis.Params{
		Temperature:         c.GetTemperature(),
		ConfidenceThreshold: c.GetConfidenceThreshold(),
		ConfidenceMargin:    c.GetConfidenceMargin(),
	}
}

// Policy builds the decision cut-offs.
func (c *DiagnosisConfig) Policy() diagnosis.Policy {
	return diagnosis.Policy{
		LowEntropyMax:            c.GetLowEntropyMax(),
		OverrideConfidence:       c.GetOverrideConfidence(),
		VetoConfidence:           c.GetVetoConfidence(),
		VetoEntropy:              c.GetVetoEntropy(),
		AlternativeMinConfidence: c.GetAlternativeMinConfidence(),
		TopK:                     c.GetTopK(),
	}
}

// Engine builds a decision engine with the default confusion table.
func (c *DiagnosisConfig) Engine() *diagnosis.Engine {
	pol := c.Policy()
	return diagnosis.NewEngine(pol, diagnosis.NewConfusionAdvisor(diagnosis.DefaultConfusionTable(), pol.AlternativeMinConfidence))
}

// CalibratorOptions converts the calibration fields. The config must have
// passed Validate.
func (c *DiagnosisConfig) CalibratorOptions() []calibration.Option {
	refiner, _ := calibration.NewRefiner(c.GetRefine())
	return []calibration.Option{
		calibration.WithGrid(c.GetGridStart(), c.GetGridEnd(), c.GetGridPoints()),
		calibration.WithBins(c.GetECEBins()),
		calibration.WithWorkers(c.GetWorkers()),
		calibration.WithRefiner(refiner),
	}
}

// GetTemperature returns the temperature or the default.
func (c *DiagnosisConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return diagnosis.DefaultTemperature
	}
	return *c.Temperature
}

// GetConfidenceThreshold returns the confidence_threshold or the default.
func (c *DiagnosisConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return diagnosis.DefaultConfidenceThreshold
	}
	return *c.ConfidenceThreshold
}

// GetConfidenceMargin returns the confidence_margin or the default.
func (c *DiagnosisConfig) GetConfidenceMargin() float64 {
	if c.ConfidenceMargin == nil {
		return diagnosis.DefaultConfidenceMargin
	}
	return *c.ConfidenceMargin
}

func (c *DiagnosisConfig) GetLowEntropyMax() float64 {
	if c.LowEntropyMax == nil {
		return diagnosis.DefaultPolicy().LowEntropyMax
	}
	return *c.LowEntropyMax
}

func (c *DiagnosisConfig) GetOverrideConfidence() float64 {
	if c.OverrideConfidence == nil {
		return diagnosis.DefaultPolicy().OverrideConfidence
	}
	return *c.OverrideConfidence
}

func (c *DiagnosisConfig) GetVetoConfidence() float64 {
	if c.VetoConfidence == nil {
		return diagnosis.DefaultPolicy().VetoConfidence
	}
	return *c.VetoConfidence
}

func (c *DiagnosisConfig) GetVetoEntropy() float64 {
	if c.VetoEntropy == nil {
		return diagnosis.DefaultPolicy().VetoEntropy
	}
	return *c.VetoEntropy
}

func (c *DiagnosisConfig) GetAlternativeMinConfidence() float64 {
	if c.AlternativeMinConfidence == nil {
		return diagnosis.DefaultAlternativeMinConfidence
	}
	return *c.AlternativeMinConfidence
}

func (c *DiagnosisConfig) GetTopK() int {
	if c.TopK == nil {
		return diagnosis.DefaultPolicy().TopK
	}
	return *c.TopK
}

// GetLabelsPath returns the labels_path or "ml/labels.txt".
func (c *DiagnosisConfig) GetLabelsPath() string {
	if c.LabelsPath == nil || *c.LabelsPath == "" {
		return DefaultLabelsPath
	}
	return *c.LabelsPath
}

func (c *DiagnosisConfig) GetGridStart() float64 {
	if c.GridStart == nil {
		return calibration.DefaultGridStart
	}
	return *c.GridStart
}

func (c *DiagnosisConfig) GetGridEnd() float64 {
	if c.GridEnd == nil {
		return calibration.DefaultGridEnd
	}
	return *c.GridEnd
}

func (c *DiagnosisConfig) GetGridPoints() int {
	if c.GridPoints == nil {
		return calibration.DefaultGridPoints
	}
	return *c.GridPoints
}

func (c *DiagnosisConfig) GetECEBins() int {
	if c.ECEBins == nil {
		return calibration.DefaultBins
	}
	return *c.ECEBins
}

// GetWorkers returns the worker limit; 0 means GOMAXPROCS.
func (c *DiagnosisConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetRefine returns the refiner name or "nelder-mead".
func (c *DiagnosisConfig) GetRefine() string {
	if c.Refine == nil {
		return calibration.RefineNelderMead
	}
	return *c.Refine
}
