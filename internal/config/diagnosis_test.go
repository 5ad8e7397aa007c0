package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() does not validate: %v", err)
	}

	if got := cfg.Params(); got != diagnosis.DefaultParams() {
		t.Errorf("Params() = %+v, want %+v", got, diagnosis.DefaultParams())
	}
	if got := cfg.Policy(); got != diagnosis.DefaultPolicy() {
		t.Errorf("Policy() = %+v, want %+v", got, diagnosis.DefaultPolicy())
	}
	if cfg.GetLabelsPath() != "ml/labels.txt" {
		t.Errorf("GetLabelsPath() = %q", cfg.GetLabelsPath())
	}
}

func TestEmptyConfig_Getters(t *testing.T) {
	cfg := EmptyConfig()

	if cfg.GetTemperature() != 1.25 {
		t.Errorf("GetTemperature() = %f, want 1.25", cfg.GetTemperature())
	}
	if cfg.GetConfidenceThreshold() != 0.45 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.45", cfg.GetConfidenceThreshold())
	}
	if cfg.GetConfidenceMargin() != 0.12 {
		t.Errorf("GetConfidenceMargin() = %f, want 0.12", cfg.GetConfidenceMargin())
	}
	if cfg.GetVetoConfidence() != 0.90 || cfg.GetVetoEntropy() != 0.70 {
		t.Errorf("veto cut-offs = %f/%f, want 0.90/0.70", cfg.GetVetoConfidence(), cfg.GetVetoEntropy())
	}
	if cfg.GetGridPoints() != 60 || cfg.GetGridStart() != 0.05 || cfg.GetGridEnd() != 3.0 {
		t.Errorf("grid = %f..%f/%d", cfg.GetGridStart(), cfg.GetGridEnd(), cfg.GetGridPoints())
	}
	if cfg.GetRefine() != calibration.RefineNelderMead {
		t.Errorf("GetRefine() = %q", cfg.GetRefine())
	}
	if cfg.GetWorkers() != 0 {
		t.Errorf("GetWorkers() = %d, want 0", cfg.GetWorkers())
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "diagnosis.json", `{
  "temperature": 1.8,
  "confidence_threshold": 0.5,
  "top_k": 5,
  "refine": "narrowing"
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 1.8 {
		t.Errorf("Expected Temperature 1.8, got %v", cfg.Temperature)
	}
	if cfg.GetConfidenceThreshold() != 0.5 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.5", cfg.GetConfidenceThreshold())
	}
	// unset fields fall back
	if cfg.ConfidenceMargin != nil {
		t.Errorf("Expected ConfidenceMargin unset, got %v", *cfg.ConfidenceMargin)
	}
	if cfg.GetConfidenceMargin() != 0.12 {
		t.Errorf("GetConfidenceMargin() = %f, want 0.12", cfg.GetConfidenceMargin())
	}
	if cfg.Policy().TopK != 5 {
		t.Errorf("Policy().TopK = %d, want 5", cfg.Policy().TopK)
	}
	if opts := cfg.CalibratorOptions(); len(opts) != 4 {
		t.Errorf("CalibratorOptions() returned %d options", len(opts))
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfig(t, "diagnosis.toml", `
temperature = 2.1
confidence_margin = 0.2
grid_points = 30
labels_path = "labels/rice.txt"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p := cfg.Params()
	if p.Temperature != 2.1 || p.ConfidenceMargin != 0.2 || p.ConfidenceThreshold != 0.45 {
		t.Errorf("Params() = %+v", p)
	}
	if cfg.GetGridPoints() != 30 {
		t.Errorf("GetGridPoints() = %d, want 30", cfg.GetGridPoints())
	}
	if cfg.GetLabelsPath() != "labels/rice.txt" {
		t.Errorf("GetLabelsPath() = %q", cfg.GetLabelsPath())
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{"wrong extension", "cfg.yaml", "temperature: 1", "extension"},
		{"bad json", "cfg.json", "{", "parse config JSON"},
		{"bad toml", "cfg.toml", "temperature = = 1", "parse TOML"},
		{"temperature too low", "cfg.json", `{"temperature": 0.05}`, "temperature"},
		{"temperature too high", "cfg.json", `{"temperature": 12}`, "temperature"},
		{"threshold above one", "cfg.json", `{"confidence_threshold": 1.5}`, "confidence_threshold"},
		{"negative margin", "cfg.json", `{"confidence_margin": -0.1}`, "confidence_margin"},
		{"veto entropy", "cfg.toml", "veto_entropy = 2.0", "veto_entropy"},
		{"top_k", "cfg.json", `{"top_k": 1}`, "top_k"},
		{"labels path", "cfg.json", `{"labels_path": "labels.csv"}`, "labels_path"},
		{"grid order", "cfg.json", `{"grid_start": 2, "grid_end": 1}`, "grid_end"},
		{"grid points", "cfg.json", `{"grid_points": 1}`, "grid_points"},
		{"bins", "cfg.json", `{"ece_bins": 0}`, "ece_bins"},
		{"workers", "cfg.json", `{"workers": -2}`, "workers"},
		{"refiner", "cfg.json", `{"refine": "brent"}`, "unknown refiner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadConfig_TooLarge(t *testing.T) {
	big := `{"temperature": 1.0, "pad": "` + strings.Repeat("x", 1<<20) + `"}`
	if _, err := LoadConfig(writeConfig(t, "big.json", big)); err == nil {
		t.Fatal("expected size error")
	}
}

// loadShippedDefaults loads DefaultConfigPath relative to the repository
// root, two levels above this package.
func loadShippedDefaults(t *testing.T) *DiagnosisConfig {
	t.Helper()
	cfg, err := LoadConfig(filepath.Join("..", "..", DefaultConfigPath))
	if err != nil {
		t.Fatalf("LoadConfig(%s) error = %v", DefaultConfigPath, err)
	}
	return cfg
}

func TestShippedDefaultsMatchDefaultConfig(t *testing.T) {
	cfg := loadShippedDefaults(t)
	want := DefaultConfig()
	if cfg.Params() != want.Params() || cfg.Policy() != want.Policy() {
		t.Errorf("defaults file drifted from DefaultConfig(): %+v / %+v", cfg.Params(), cfg.Policy())
	}
	if cfg.GetRefine() != want.GetRefine() || cfg.GetGridPoints() != want.GetGridPoints() {
		t.Errorf("calibration defaults drifted")
	}
}
