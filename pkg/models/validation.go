package models

// ExampleResult is the outcome of checking one example against a rule.
type ExampleResult struct {
	Example string `json:"example" yaml:"example"`
	Matched bool   `json:"matched" yaml:"matched"`
	Reason  string `json:"reason" yaml:"reason"`
}

// ValidationResult reports how a rule behaves on positive and negative
// examples. Valid is true iff every positive matched and no negative did.
type ValidationResult struct {
	Valid                     bool            `json:"valid" yaml:"valid"`
	Error                     string          `json:"error,omitempty" yaml:"error,omitempty"`
	PositiveExampleResults    []ExampleResult `json:"positive_example_results" yaml:"positive_example_results"`
	NegativeExampleResults    []ExampleResult `json:"negative_example_results" yaml:"negative_example_results"`
	SuggestedPositiveExamples []string        `json:"suggested_positive_examples,omitempty" yaml:"suggested_positive_examples,omitempty"`
	SuggestedNegativeExamples []string        `json:"suggested_negative_examples,omitempty" yaml:"suggested_negative_examples,omitempty"`
	Notes                     []string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// MatchedCounts returns how many positives matched and how many negatives
// were correctly rejected.
func (r *ValidationResult) MatchedCounts() (positives, rejectedNegatives int) {
	for _, p := range r.PositiveExampleResults {
		if p.Matched {
			positives++
		}
	}
	for _, n := range r.NegativeExampleResults {
		if !n.Matched {
			rejectedNegatives++
		}
	}
	return positives, rejectedNegatives
}
