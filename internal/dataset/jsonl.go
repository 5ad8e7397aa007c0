package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/monitoring"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 4 << 20

// Record is one labeled output. Label takes precedence over LabelIndex.
type Record struct {
	Label      string              `json:"label,omitempty"`
	LabelIndex *int                `json:"label_index,omitempty"`
	RawOutput  diagnosis.RawOutput `json:"raw_output"`
}

func (r Record) sample(li labelIndex, labelCount int) (calibration.Sample, error) {
	idx := -1
	switch {
	case r.Label != "":
		i, ok := li.lookup(r.Label)
		if !ok {
			return calibration.Sample{}, fmt.Errorf("unknown label %q", r.Label)
		}
		idx = i
	case r.LabelIndex != nil:
		idx = *r.LabelIndex
		if idx < 0 || idx >= labelCount {
			return calibration.Sample{}, fmt.Errorf("label_index %d out of range [0, %d)", idx, labelCount)
		}
	default:
		return calibration.Sample{}, fmt.Errorf("record has neither label nor label_index")
	}
	if err := diagnosis.CheckShape(len(r.RawOutput), labelCount); err != nil {
		return calibration.Sample{}, err
	}
	return calibration.Sample{RawOutput: r.RawOutput, TrueLabel: idx}, nil
}

// LoadJSONL reads one Record per line. Blank lines are skipped. A file whose
// first non-space byte is '[' is read as a single JSON array of records.
func LoadJSONL(path string, labels diagnosis.LabelSet) ([]calibration.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	li := newLabelIndex(labels)
	br := bufio.NewReader(f)
	if first, err := peekNonSpace(br); err == nil && first == '[' {
		var records []Record
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("%s: failed to parse JSON array: %w", path, err)
		}
		samples := make([]calibration.Sample, 0, len(records))
		for i, r := range records {
			s, err := r.sample(li, labels.Len())
			if err != nil {
				return nil, fmt.Errorf("%s: record %d: %w", path, i, err)
			}
			samples = append(samples, s)
		}
		return finish(path, samples)
	}

	var samples []calibration.Sample
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(text, &r); err != nil {
			return nil, fmt.Errorf("%s:%d: failed to parse record: %w", path, line, err)
		}
		s, err := r.sample(li, labels.Len())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return finish(path, samples)
}

// peekNonSpace returns the first non-whitespace byte without consuming input.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for n := 1; ; n++ {
		buf, err := br.Peek(n)
		if err != nil {
			return 0, err
		}
		switch c := buf[n-1]; c {
		case ' ', '\t', '\r', '\n':
		default:
			return c, nil
		}
	}
}

func finish(path string, samples []calibration.Sample) ([]calibration.Sample, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, path)
	}
	monitoring.Logf("[Dataset] Loaded %d samples from %s", len(samples), path)
	return samples, nil
}
