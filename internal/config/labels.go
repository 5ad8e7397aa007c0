package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/security"
)

// DefaultLabelsPath is where the classifier's label list ships.
const DefaultLabelsPath = "ml/labels.txt"

// LoadLabels reads one class name per line. Surrounding whitespace and blank
// lines are ignored; the result is validated by diagnosis.NewLabelSet.
func LoadLabels(path string) (diagnosis.LabelSet, error) {
	cleanPath, err := security.CheckInputFile(path, []string{".txt"}, security.MaxInputFileSize)
	if err != nil {
		return diagnosis.LabelSet{}, fmt.Errorf("labels file: %w", err)
	}
	data, err := readFile(cleanPath)
	if err != nil {
		return diagnosis.LabelSet{}, err
	}

	var labels []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := sc.Err(); err != nil {
		return diagnosis.LabelSet{}, fmt.Errorf("failed to read labels file %s: %w", cleanPath, err)
	}

	ls, err := diagnosis.NewLabelSet(labels)
	if err != nil {
		return diagnosis.LabelSet{}, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return ls, nil
}
