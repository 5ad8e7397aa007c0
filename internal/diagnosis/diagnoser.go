package diagnosis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/paddy.report/internal/monitoring"
)

// Diagnoser runs the online path for one label set and one parameter
// snapshot. It is safe for concurrent use.
type Diagnoser struct {
	labels LabelSet
	params Params
	engine *Engine
}

// NewDiagnoser binds labels, params and engine. A nil engine uses
// DefaultEngine.
func NewDiagnoser(labels LabelSet, params Params, engine *Engine) *Diagnoser {
	if engine == nil {
		engine = DefaultEngine()
	}
	return &Diagnoser{labels: labels, params: params, engine: engine}
}

// Labels returns the bound label set.
func (d *Diagnoser) Labels() LabelSet { return d.labels }

// Params returns the bound calibration snapshot.
func (d *Diagnoser) Params() Params { return d.params }

func (d *Diagnoser) validate(raw RawOutput) error {
	if err := CheckShape(len(raw), d.labels.Len()); err != nil {
		return err
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: index %d is %v", ErrNonFiniteOutput, i, v)
		}
	}
	return nil
}

// Diagnose normalizes raw and applies the decision rule.
func (d *Diagnoser) Diagnose(raw RawOutput) (Outcome, error) {
	if err := d.validate(raw); err != nil {
		return Outcome{}, err
	}

	dist := Normalize(raw, d.params.Temperature)
	out, err := d.engine.Decide(dist, d.labels, d.params)
	if err != nil {
		return Outcome{}, err
	}

	if monitoring.DebugEnabled() {
		s := d.engine.Evaluate(dist, d.params)
		monitoring.Debugf("[Diagnoser] raw_sum=%.3f logits=%v T=%.3f", floats.Sum(raw), IsLogits(raw), EffectiveTemperature(d.params.Temperature))
		monitoring.Debugf("[Diagnoser] confidence=%.3f gap=%.3f entropy_ratio=%.3f threshold=%.2f margin=%.2f",
			s.Confidence, s.Gap, s.EntropyRatio, d.params.ConfidenceThreshold, d.params.ConfidenceMargin)
		monitoring.Debugf("[Diagnoser] decision=%s reasons=%s", decisionWord(out.IsCertain), strings.Join(out.Reasons, ","))
	}
	if len(out.Alternatives) > 0 {
		monitoring.Logf("[Diagnoser] Warning: %q may be confused with %v", out.Label, out.Alternatives)
	}
	return out, nil
}

// Explanation is the full debug view of one diagnosis.
type Explanation struct {
	RawOutputs     []float64          `json:"raw_outputs"`
	RawSum         float64            `json:"raw_sum"`
	HasNegative    bool               `json:"has_negative"`
	IsLogits       bool               `json:"is_logits"`
	Temperature    float64            `json:"temperature"`
	Probabilities  []float64          `json:"calibrated_probabilities"`
	Entropy        float64            `json:"entropy"`
	MaxEntropy     float64            `json:"max_entropy"`
	EntropyRatio   float64            `json:"entropy_ratio"`
	TopPredictions []RankedPrediction `json:"top_predictions"`
	Params         Params             `json:"thresholds"`
	Policy         Policy             `json:"policy"`
	Signals        Signals            `json:"decision_metrics"`
	Outcome        Outcome            `json:"final_prediction"`
}

// Explain runs the same path as Diagnose and returns every intermediate
// value.
func (d *Diagnoser) Explain(raw RawOutput) (Explanation, error) {
	if err := d.validate(raw); err != nil {
		return Explanation{}, err
	}

	dist := Normalize(raw, d.params.Temperature)
	out, err := d.engine.Decide(dist, d.labels, d.params)
	if err != nil {
		return Explanation{}, err
	}
	top, err := TopK(dist, d.labels, d.engine.Policy().TopK)
	if err != nil {
		return Explanation{}, err
	}

	rawCopy := make([]float64, len(raw))
	copy(rawCopy, raw)
	return Explanation{
		RawOutputs:     rawCopy,
		RawSum:         floats.Sum(raw),
		HasNegative:    hasNegative(raw),
		IsLogits:       IsLogits(raw),
		Temperature:    EffectiveTemperature(d.params.Temperature),
		Probabilities:  []float64(dist),
		Entropy:        Entropy(dist),
		MaxEntropy:     MaxEntropy(len(dist)),
		EntropyRatio:   EntropyRatio(dist),
		TopPredictions: top,
		Params:         d.params,
		Policy:         d.engine.Policy(),
		Signals:        d.engine.Evaluate(dist, d.params),
		Outcome:        out,
	}, nil
}

func decisionWord(certain bool) string {
	if certain {
		return "CERTAIN"
	}
	return "UNCERTAIN"
}
