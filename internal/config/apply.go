package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/paddy.report/internal/fsutil"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/security"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ApplyTemperature writes temperature, rounded to three decimals, into the
// config file at path. Other keys are preserved. The previous contents are
// kept in path+".bak", and restored if the updated file fails validation.
// It returns the value written.
func ApplyTemperature(path string, temperature float64) (float64, error) {
	rounded := math.Round(temperature*1000) / 1000
	if rounded < MinTemperature || rounded > MaxTemperature {
		return 0, fmt.Errorf("temperature must be between %.1f and %.1f, got %f", MinTemperature, MaxTemperature, temperature)
	}

	cleanPath, err := security.CheckInputFile(path, []string{".json", ".toml"}, security.MaxInputFileSize)
	if err != nil {
		return 0, fmt.Errorf("config file: %w", err)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat config file: %w", err)
	}
	original, err := readFile(cleanPath)
	if err != nil {
		return 0, err
	}

	backup := cleanPath + ".bak"
	if err := fsutil.WriteFileAtomic(backup, original, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to write backup %s: %w", backup, err)
	}
	monitoring.Logf("[Config] Created backup: %s", backup)

	doc := map[string]any{}
	if err := decodeFile(cleanPath, &doc); err != nil {
		return 0, err
	}
	doc["temperature"] = rounded

	updated, err := encodeDoc(cleanPath, doc)
	if err != nil {
		return 0, err
	}
	if err := fsutil.WriteFileAtomic(cleanPath, updated, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", cleanPath, err)
	}

	if _, err := LoadConfig(cleanPath); err != nil {
		if restoreErr := fsutil.WriteFileAtomic(cleanPath, original, info.Mode().Perm()); restoreErr != nil {
			return 0, fmt.Errorf("updated config invalid (%v) and restore failed: %w", err, restoreErr)
		}
		return 0, fmt.Errorf("updated config invalid, original restored: %w", err)
	}
	monitoring.Logf("[Config] Updated temperature=%.3f in %s", rounded, cleanPath)
	return rounded, nil
}

func encodeDoc(path string, doc map[string]any) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("%s: failed to encode TOML: %w", path, err)
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode JSON: %w", path, err)
	}
	return append(data, '\n'), nil
}
