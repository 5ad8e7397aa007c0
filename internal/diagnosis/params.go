package diagnosis

// Params is the calibration snapshot loaded once at startup. It is passed by
// value into every decision and never mutated.
type Params struct {
	Temperature         float64 `json:"temperature"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	ConfidenceMargin    float64 `json:"confidence_margin"`
}

// Default calibration values.
const (
	DefaultTemperature         = 1.25
	DefaultConfidenceThreshold = 0.45
	DefaultConfidenceMargin    = 0.12
)

// DefaultParams returns the shipped calibration values.
func DefaultParams() Params {
	return Params{
		Temperature:         DefaultTemperature,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		ConfidenceMargin:    DefaultConfidenceMargin,
	}
}

// Policy holds the fixed cut-offs of the decision rule.
type Policy struct {
	// LowEntropyMax is the largest entropy ratio that counts as low entropy.
	LowEntropyMax float64 `json:"low_entropy_max"`
	// OverrideConfidence lets a prediction through on confidence plus low
	// entropy alone, without the threshold/gap pairing.
	OverrideConfidence float64 `json:"override_confidence"`
	// VetoConfidence and VetoEntropy describe a sharp peak on a noisy
	// distribution; both exceeded forces UNCERTAIN.
	VetoConfidence float64 `json:"veto_confidence"`
	VetoEntropy    float64 `json:"veto_entropy"`
	// AlternativeMinConfidence is the runner-up floor for confusion advice.
	AlternativeMinConfidence float64 `json:"alternative_min_confidence"`
	// TopK is the size of the ranked view handed to the confusion advisor.
	TopK int `json:"top_k"`
}

// DefaultPolicy returns the production decision cut-offs.
func DefaultPolicy() Policy {
	return Policy{
		LowEntropyMax:            0.45,
		OverrideConfidence:       0.78,
		VetoConfidence:           0.90,
		VetoEntropy:              0.70,
		AlternativeMinConfidence: DefaultAlternativeMinConfidence,
		TopK:                     3,
	}
}
