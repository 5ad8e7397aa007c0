package diagnosis

import "sort"

// RankedPrediction is one entry of a top-K view.
type RankedPrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rank       int     `json:"rank"`
}

// TopK returns the k most probable classes in descending confidence order.
// Equal confidences keep class index order. k is capped at the class count.
func TopK(dist Distribution, labels LabelSet, k int) ([]RankedPrediction, error) {
	if err := CheckShape(len(dist), labels.Len()); err != nil {
		return nil, err
	}
	if k > len(dist) {
		k = len(dist)
	}
	if k <= 0 {
		return []RankedPrediction{}, nil
	}

	order := make([]int, len(dist))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dist[order[a]] > dist[order[b]]
	})

	out := make([]RankedPrediction, k)
	for r := 0; r < k; r++ {
		idx := order[r]
		out[r] = RankedPrediction{
			Label:      labels.At(idx),
			Confidence: dist[idx],
			Rank:       r + 1,
		}
	}
	return out, nil
}
