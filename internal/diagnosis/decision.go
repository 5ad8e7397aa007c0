package diagnosis

import "fmt"

// UncertainLabel is reported instead of a class name when the decision rule
// does not accept the top prediction.
const UncertainLabel = "uncertain"

// Decision reason tags. They are diagnostic only.
const (
	ReasonConfidenceAboveThreshold  = "confidence_above_threshold"
	ReasonGapAboveMargin            = "gap_above_margin"
	ReasonLowEntropy                = "low_entropy"
	ReasonHighConfidenceOverride    = "high_confidence_override"
	ReasonHighConfidenceHighEntropy = "high_confidence_high_entropy_UNCERTAIN"
)

// Outcome is the result of one decision. It is created per call and owned by
// the caller.
type Outcome struct {
	IsCertain    bool     `json:"is_certain"`
	Label        string   `json:"label"`
	Confidence   float64  `json:"confidence"`
	Alternatives []string `json:"alternatives"`
	Reasons      []string `json:"reasons"`
}

// Signals are the intermediate values the decision rule reads.
type Signals struct {
	Confidence   float64 `json:"confidence"`
	RunnerUp     float64 `json:"runner_up"`
	Gap          float64 `json:"confidence_gap"`
	EntropyRatio float64 `json:"entropy_ratio"`

	HighConfidence         bool `json:"high_confidence"`
	GoodGap                bool `json:"good_gap"`
	LowEntropy             bool `json:"low_entropy"`
	HighConfidenceOverride bool `json:"high_confidence_override"`
	Veto                   bool `json:"high_confidence_high_entropy"`
	Certain                bool `json:"should_be_certain"`
}

// Engine applies the multi-criterion accept/reject rule. It holds no
// per-call state.
type Engine struct {
	policy  Policy
	advisor *ConfusionAdvisor
}

// NewEngine builds an engine. A nil advisor disables confusion advice.
func NewEngine(policy Policy, advisor *ConfusionAdvisor) *Engine {
	if policy.TopK < 2 {
		policy.TopK = DefaultPolicy().TopK
	}
	return &Engine{policy: policy, advisor: advisor}
}

// DefaultEngine uses DefaultPolicy and the default confusion table.
func DefaultEngine() *Engine {
	p := DefaultPolicy()
	return NewEngine(p, NewConfusionAdvisor(DefaultConfusionTable(), p.AlternativeMinConfidence))
}

// Policy returns the engine's cut-offs.
func (e *Engine) Policy() Policy { return e.policy }

// Evaluate computes the decision signals for dist.
func (e *Engine) Evaluate(dist Distribution, params Params) Signals {
	top1, top2 := topTwo(dist)
	return e.rule(top1, top2, EntropyRatio(dist), params)
}

// rule is the decision rule over the three summary statistics of a
// distribution.
func (e *Engine) rule(top1, top2, ratio float64, params Params) Signals {
	s := Signals{
		Confidence:   top1,
		RunnerUp:     top2,
		Gap:          top1 - top2,
		EntropyRatio: ratio,
	}
	s.HighConfidence = top1 >= params.ConfidenceThreshold
	s.GoodGap = s.Gap >= params.ConfidenceMargin
	s.LowEntropy = ratio <= e.policy.LowEntropyMax
	s.HighConfidenceOverride = top1 >= e.policy.OverrideConfidence

	s.Certain = (s.HighConfidenceOverride && s.LowEntropy) ||
		(s.HighConfidence && (s.GoodGap || s.LowEntropy))

	// A sharp peak over an otherwise diffuse distribution suggests an
	// atypical image; never accept it.
	if top1 > e.policy.VetoConfidence && ratio > e.policy.VetoEntropy {
		s.Veto = true
		s.Certain = false
	}
	return s
}

// Reasons lists the tags for the signals that fired, in rule order.
func (s Signals) Reasons() []string {
	reasons := []string{}
	if s.HighConfidence {
		reasons = append(reasons, ReasonConfidenceAboveThreshold)
	}
	if s.GoodGap {
		reasons = append(reasons, ReasonGapAboveMargin)
	}
	if s.LowEntropy {
		reasons = append(reasons, ReasonLowEntropy)
	}
	if s.HighConfidenceOverride {
		reasons = append(reasons, ReasonHighConfidenceOverride)
	}
	if s.Veto {
		reasons = append(reasons, ReasonHighConfidenceHighEntropy)
	}
	return reasons
}

// Decide accepts or rejects the top prediction of dist. The only error is a
// length mismatch between dist and labels, which callers are expected to
// have ruled out already.
func (e *Engine) Decide(dist Distribution, labels LabelSet, params Params) (Outcome, error) {
	if err := CheckShape(len(dist), labels.Len()); err != nil {
		return Outcome{}, err
	}
	if len(dist) == 0 {
		return Outcome{}, fmt.Errorf("%w: empty label set", ErrInvalidLabels)
	}

	s := e.Evaluate(dist, params)
	out := Outcome{
		IsCertain:    s.Certain,
		Label:        UncertainLabel,
		Confidence:   s.Confidence,
		Alternatives: []string{},
		Reasons:      s.Reasons(),
	}
	if !s.Certain {
		return out, nil
	}

	out.Label = labels.At(dist.Argmax())
	if e.advisor != nil {
		top, err := TopK(dist, labels, e.policy.TopK)
		if err != nil {
			return Outcome{}, err
		}
		out.Alternatives = e.advisor.Alternatives(out.Label, top)
	}
	return out, nil
}

// topTwo returns the largest and second-largest probabilities. The second is
// 0 for a single-entry distribution.
func topTwo(dist []float64) (first, second float64) {
	if len(dist) == 0 {
		return 0, 0
	}
	best := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] > dist[best] {
			best = i
		}
	}
	first = dist[best]
	for i, v := range dist {
		if i != best && v > second {
			second = v
		}
	}
	return first, second
}
