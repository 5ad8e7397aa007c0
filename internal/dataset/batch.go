package dataset

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/fsutil"
	"github.com/banshee-data/paddy.report/internal/monitoring"
)

// batchSchemaVersion is bumped whenever Batch changes shape.
const batchSchemaVersion uint16 = 1

// Batch is the packed form of a calibration set.
type Batch struct {
	Schema  uint16               `msgpack:"schema"`
	Labels  []string             `msgpack:"labels"`
	Samples []calibration.Sample `msgpack:"samples"`
}

// SaveBatch packs samples with the label order they were collected against.
// The file is written to a temporary name and renamed into place.
func SaveBatch(path string, labels diagnosis.LabelSet, samples []calibration.Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	batch := Batch{Schema: batchSchemaVersion, Labels: labels.Labels(), Samples: samples}
	err := fsutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		if err := msgpack.NewEncoder(w).Encode(&batch); err != nil {
			return fmt.Errorf("failed to encode batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	monitoring.Logf("[Dataset] Packed %d samples into %s", len(samples), path)
	return nil
}

// LoadBatch reads a batch written by SaveBatch. The packed label order must
// equal labels exactly.
func LoadBatch(path string, labels diagnosis.LabelSet) ([]calibration.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var batch Batch
	if err := msgpack.NewDecoder(f).Decode(&batch); err != nil {
		return nil, fmt.Errorf("%s: failed to decode batch: %w", path, err)
	}
	if batch.Schema != batchSchemaVersion {
		return nil, fmt.Errorf("%s: unsupported batch schema %d (want %d)", path, batch.Schema, batchSchemaVersion)
	}
	if !slices.Equal(batch.Labels, labels.Labels()) {
		return nil, fmt.Errorf("%w: %s was packed for %v, active labels are %v", ErrLabelMismatch, path, batch.Labels, labels.Labels())
	}
	return finish(path, batch.Samples)
}
