package diagnosis

// DefaultAlternativeMinConfidence is the runner-up confidence a known
// confusion must exceed to be surfaced.
const DefaultAlternativeMinConfidence = 0.20

// ConfusionTable maps a label to the labels it is commonly mistaken for.
type ConfusionTable map[string][]string

// DefaultConfusionTable returns a fresh copy of the rice disease pairs that
// field reviewers most often confuse.
func DefaultConfusionTable() ConfusionTable {
	return ConfusionTable{
		"leaf_scald":            {"rice_blast", "brown_spot"},
		"rice_blast":            {"leaf_scald", "narrow_brown_spot"},
		"brown_spot":            {"narrow_brown_spot", "leaf_scald"},
		"narrow_brown_spot":     {"brown_spot", "rice_blast"},
		"leaf_blast":            {"rice_blast", "bacterial_leaf_blight"},
		"bacterial_leaf_blight": {"leaf_blast"},
	}
}

// ConfusionAdvisor surfaces runner-up predictions that are known confusions
// of the predicted label. It is read-only after construction.
type ConfusionAdvisor struct {
	similar       map[string]map[string]struct{}
	minConfidence float64
}

// NewConfusionAdvisor copies table into an immutable advisor.
func NewConfusionAdvisor(table ConfusionTable, minConfidence float64) *ConfusionAdvisor {
	similar := make(map[string]map[string]struct{}, len(table))
	for label, others := range table {
		set := make(map[string]struct{}, len(others))
		for _, o := range others {
			set[o] = struct{}{}
		}
		similar[label] = set
	}
	return &ConfusionAdvisor{similar: similar, minConfidence: minConfidence}
}

// DefaultConfusionAdvisor uses DefaultConfusionTable and a 0.20 minimum.
func DefaultConfusionAdvisor() *ConfusionAdvisor {
	return NewConfusionAdvisor(DefaultConfusionTable(), DefaultAlternativeMinConfidence)
}

// Alternatives returns the rank 2 and rank 3 labels from top that are known
// confusions of predicted and whose confidence exceeds the minimum. The
// result is never nil.
func (a *ConfusionAdvisor) Alternatives(predicted string, top []RankedPrediction) []string {
	alternatives := []string{}
	similar, ok := a.similar[predicted]
	if !ok {
		return alternatives
	}

	for i := 1; i < len(top) && i < 3; i++ {
		p := top[i]
		if _, listed := similar[p.Label]; listed && p.Confidence > a.minConfidence {
			alternatives = append(alternatives, p.Label)
		}
	}
	return alternatives
}

// Known reports whether predicted has a confusion entry.
func (a *ConfusionAdvisor) Known(predicted string) bool {
	_, ok := a.similar[predicted]
	return ok
}
