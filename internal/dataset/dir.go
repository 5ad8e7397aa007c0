package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/security"
)

// LoadDir reads a folder-per-class layout. Each sub-directory whose
// FolderLabel matches a label holds one raw output per file: .json files
// contain an array or {"raw_output": [...]}, .msgpack files an array.
// Unknown folders are skipped with a warning and other files are ignored.
// Files are read in name order.
func LoadDir(dir string, labels diagnosis.LabelSet) ([]calibration.Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample directory %s: %w", dir, err)
	}
	li := newLabelIndex(labels)

	var samples []calibration.Sample
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		idx, ok := li.lookup(entry.Name())
		if !ok {
			monitoring.Logf("[Dataset] Warning: label %q not found in model labels. Skipping.", FolderLabel(entry.Name()))
			continue
		}

		classDir := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", classDir, err)
		}
		for _, f := range files {
			if f.IsDir() || !isSampleFile(f.Name()) {
				continue
			}
			path := filepath.Join(classDir, f.Name())
			if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
				return nil, err
			}
			raw, err := ReadRawOutput(path)
			if err != nil {
				return nil, err
			}
			if err := diagnosis.CheckShape(len(raw), labels.Len()); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			samples = append(samples, calibration.Sample{RawOutput: raw, TrueLabel: idx})
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	monitoring.Logf("[Dataset] Loaded %d samples from %s", len(samples), dir)
	return samples, nil
}

func isSampleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".msgpack":
		return true
	}
	return false
}

// ReadRawOutput decodes one raw output file: a .json array or
// {"raw_output": [...]} object, or a .msgpack array.
func ReadRawOutput(path string) (diagnosis.RawOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw diagnosis.RawOutput
	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		if err := msgpack.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: failed to decode msgpack: %w", path, err)
		}
		return raw, nil
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%s: failed to parse JSON: %w", path, err)
		}
		return raw, nil
	}
	var obj struct {
		RawOutput diagnosis.RawOutput `json:"raw_output"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%s: failed to parse JSON: %w", path, err)
	}
	if obj.RawOutput == nil {
		return nil, fmt.Errorf("%s: missing raw_output", path)
	}
	return obj.RawOutput, nil
}

const layoutReadme = `Calibration samples

Put one classifier output per file in the folder named after its true class.
Accepted files:
  *.json     an array of raw outputs, or {"raw_output": [...]}
  *.msgpack  a msgpack-encoded array of raw outputs

Each output must have exactly %d values, in label order:
%s
`

// CreateLayout creates an empty folder-per-class layout under dir with a
// README describing the file format. Existing folders are left untouched.
func CreateLayout(dir string, labels diagnosis.LabelSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	var list strings.Builder
	for i, label := range labels.Labels() {
		classDir := filepath.Join(dir, security.SanitizeFilename(label))
		if err := os.MkdirAll(classDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", classDir, err)
		}
		fmt.Fprintf(&list, "  %2d  %s\n", i, label)
	}
	readme := filepath.Join(dir, "README.txt")
	if err := os.WriteFile(readme, []byte(fmt.Sprintf(layoutReadme, labels.Len(), list.String())), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", readme, err)
	}
	monitoring.Logf("[Dataset] Created sample layout for %d classes in %s", labels.Len(), dir)
	return nil
}
