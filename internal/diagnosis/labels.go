package diagnosis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Label set limits.
const (
	MinLabels      = 2
	MaxLabels      = 100
	MaxLabelLength = 50
)

// LabelSet is the ordered list of class names; position i names RawOutput[i].
// The zero value is empty and unusable; build one with NewLabelSet.
type LabelSet struct {
	labels []string
	index  map[string]int
}

// NewLabelSet validates and copies labels. Each label is NFKC-normalized and
// trimmed before validation.
func NewLabelSet(labels []string) (LabelSet, error) {
	if len(labels) < MinLabels {
		return LabelSet{}, fmt.Errorf("%w: must list at least %d classes, got %d", ErrInvalidLabels, MinLabels, len(labels))
	}
	if len(labels) > MaxLabels {
		return LabelSet{}, fmt.Errorf("%w: too many labels (%d), maximum allowed is %d", ErrInvalidLabels, len(labels), MaxLabels)
	}

	ls := LabelSet{
		labels: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, raw := range labels {
		label := NormalizeLabel(raw)
		if err := validateLabel(label); err != nil {
			return LabelSet{}, err
		}
		if prev, dup := ls.index[label]; dup {
			return LabelSet{}, fmt.Errorf("%w: duplicate label %q at positions %d and %d", ErrInvalidLabels, label, prev, i)
		}
		ls.labels[i] = label
		ls.index[label] = i
	}
	return ls, nil
}

// MustLabelSet is NewLabelSet for fixed, known-good label lists.
func MustLabelSet(labels ...string) LabelSet {
	ls, err := NewLabelSet(labels)
	if err != nil {
		panic(err)
	}
	return ls
}

// NormalizeLabel applies NFKC normalization and trims surrounding space.
func NormalizeLabel(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidLabels)
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return fmt.Errorf("%w: label too long: %q, maximum length is %d characters", ErrInvalidLabels, label, MaxLabelLength)
	}
	for _, r := range label {
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return fmt.Errorf("%w: invalid label format: %q, labels must be alphanumeric with underscores/hyphens only", ErrInvalidLabels, label)
	}
	return nil
}

// Len returns the number of classes.
func (ls LabelSet) Len() int { return len(ls.labels) }

// At returns the label for class index i.
func (ls LabelSet) At(i int) string { return ls.labels[i] }

// Index returns the class index for label.
func (ls LabelSet) Index(label string) (int, bool) {
	i, ok := ls.index[label]
	return i, ok
}

// Labels returns a copy of the ordered labels.
func (ls LabelSet) Labels() []string {
	out := make([]string, len(ls.labels))
	copy(out, ls.labels)
	return out
}
