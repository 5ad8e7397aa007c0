// Package dataset loads labeled classifier outputs for calibration.
//
// Three on-disk forms are supported: a folder per class holding one raw
// output per file, a JSON Lines file of labeled records, and a msgpack
// batch written by SaveBatch.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
)

var (
	// ErrNoSamples is returned when a source holds no usable samples.
	ErrNoSamples = errors.New("dataset: no samples found")

	// ErrLabelMismatch is returned when a batch was packed for a different
	// label set.
	ErrLabelMismatch = errors.New("dataset: label set mismatch")
)

// FolderLabel maps a class folder name to a label key: NFKC-normalized,
// trimmed, lower-cased, with spaces and hyphens turned into underscores.
func FolderLabel(name string) string {
	s := strings.ToLower(strings.TrimSpace(norm.NFKC.String(name)))
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
}

// labelIndex resolves folder names and record labels against a LabelSet.
type labelIndex struct {
	exact  diagnosis.LabelSet
	folded map[string]int
}

func newLabelIndex(labels diagnosis.LabelSet) labelIndex {
	folded := make(map[string]int, labels.Len())
	for i, l := range labels.Labels() {
		folded[FolderLabel(l)] = i
	}
	return labelIndex{exact: labels, folded: folded}
}

func (li labelIndex) lookup(name string) (int, bool) {
	if i, ok := li.exact.Index(diagnosis.NormalizeLabel(name)); ok {
		return i, true
	}
	i, ok := li.folded[FolderLabel(name)]
	return i, ok
}

// Load reads samples from path: a directory is read with LoadDir, .jsonl
// and .json with LoadJSONL, and .msgpack or .mp with LoadBatch.
func Load(path string, labels diagnosis.LabelSet) ([]calibration.Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path, labels)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return LoadJSONL(path, labels)
	case ".msgpack", ".mp":
		return LoadBatch(path, labels)
	default:
		return nil, fmt.Errorf("unsupported sample source %s (want a directory, .jsonl, .json or .msgpack)", path)
	}
}
