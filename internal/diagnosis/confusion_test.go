package diagnosis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfusionTable(t *testing.T) {
	t.Parallel()

	want := ConfusionTable{
		"leaf_scald":            {"rice_blast", "brown_spot"},
		"rice_blast":            {"leaf_scald", "narrow_brown_spot"},
		"brown_spot":            {"narrow_brown_spot", "leaf_scald"},
		"narrow_brown_spot":     {"brown_spot", "rice_blast"},
		"leaf_blast":            {"rice_blast", "bacterial_leaf_blight"},
		"bacterial_leaf_blight": {"leaf_blast"},
	}
	if diff := cmp.Diff(want, DefaultConfusionTable()); diff != "" {
		t.Errorf("DefaultConfusionTable() mismatch (-want +got):\n%s", diff)
	}

	// callers get a copy
	table := DefaultConfusionTable()
	table["leaf_blast"][0] = "mutated"
	assert.Equal(t, "rice_blast", DefaultConfusionTable()["leaf_blast"][0])
}

func TestConfusionAdvisor_Alternatives(t *testing.T) {
	t.Parallel()

	advisor := DefaultConfusionAdvisor()

	tests := []struct {
		name      string
		predicted string
		top       []RankedPrediction
		want      []string
	}{
		{
			// brown_spot is not a listed confusion of leaf_blast and is below 0.20
			name:      "leaf blast with rice blast runner-up",
			predicted: "leaf_blast",
			top: []RankedPrediction{
				{Label: "leaf_blast", Confidence: 0.8, Rank: 1},
				{Label: "rice_blast", Confidence: 0.25, Rank: 2},
				{Label: "brown_spot", Confidence: 0.05, Rank: 3},
			},
			want: []string{"rice_blast"},
		},
		{
			name:      "both runner-ups listed, rank order kept",
			predicted: "leaf_scald",
			top: []RankedPrediction{
				{Label: "leaf_scald", Confidence: 0.5, Rank: 1},
				{Label: "brown_spot", Confidence: 0.26, Rank: 2},
				{Label: "rice_blast", Confidence: 0.24, Rank: 3},
			},
			want: []string{"brown_spot", "rice_blast"},
		},
		{
			name:      "confidence must exceed the minimum",
			predicted: "bacterial_leaf_blight",
			top: []RankedPrediction{
				{Label: "bacterial_leaf_blight", Confidence: 0.8, Rank: 1},
				{Label: "leaf_blast", Confidence: 0.20, Rank: 2},
			},
			want: []string{},
		},
		{
			name:      "unknown label",
			predicted: "healthy",
			top: []RankedPrediction{
				{Label: "healthy", Confidence: 0.5, Rank: 1},
				{Label: "rice_blast", Confidence: 0.45, Rank: 2},
			},
			want: []string{},
		},
		{
			name:      "rank four is ignored",
			predicted: "rice_blast",
			top: []RankedPrediction{
				{Label: "rice_blast", Confidence: 0.3, Rank: 1},
				{Label: "healthy", Confidence: 0.25, Rank: 2},
				{Label: "brown_spot", Confidence: 0.24, Rank: 3},
				{Label: "leaf_scald", Confidence: 0.21, Rank: 4},
			},
			want: []string{},
		},
		{
			name:      "top pick is never an alternative",
			predicted: "rice_blast",
			top:       []RankedPrediction{{Label: "leaf_scald", Confidence: 0.9, Rank: 1}},
			want:      []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := advisor.Alternatives(tt.predicted, tt.top)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfusionAdvisor_CustomTable(t *testing.T) {
	t.Parallel()

	advisor := NewConfusionAdvisor(ConfusionTable{"a": {"b"}}, 0.5)
	assert.True(t, advisor.Known("a"))
	assert.False(t, advisor.Known("b"))

	top := []RankedPrediction{{Label: "a", Confidence: 0.4, Rank: 1}, {Label: "b", Confidence: 0.45, Rank: 2}}
	assert.Empty(t, advisor.Alternatives("a", top))
}

func TestTopK(t *testing.T) {
	t.Parallel()

	labels := MustLabelSet("a", "b", "c", "d")

	t.Run("descending with stable ties", func(t *testing.T) {
		top, err := TopK(Distribution{0.2, 0.4, 0.2, 0.2}, labels, 3)
		assert.NoError(t, err)
		want := []RankedPrediction{
			{Label: "b", Confidence: 0.4, Rank: 1},
			{Label: "a", Confidence: 0.2, Rank: 2},
			{Label: "c", Confidence: 0.2, Rank: 3},
		}
		assert.Equal(t, want, top)
	})

	t.Run("k capped at class count", func(t *testing.T) {
		top, err := TopK(Distribution{0.1, 0.2, 0.3, 0.4}, labels, 10)
		assert.NoError(t, err)
		assert.Len(t, top, 4)
		assert.Equal(t, "d", top[0].Label)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := TopK(Distribution{0.5, 0.5}, labels, 3)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}
