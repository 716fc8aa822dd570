package models

// DecisionReason explains which mechanism a synthesized rule relies on.
type DecisionReason string

const (
	DecisionFiniteMatch DecisionReason = "finite_match"
	DecisionRegexMatch  DecisionReason = "regex_match"
	DecisionRejected    DecisionReason = "rejected"
)

// ColumnDiagnostics measures how much of a column sample a finite list and
// regex set explain. Computed against one rule snapshot and one sample.
type ColumnDiagnostics struct {
	FiniteCoverage          float64        `json:"finite_coverage" yaml:"finite_coverage"`
	RegexCoverage           float64        `json:"regex_coverage" yaml:"regex_coverage"`
	NonNullCount            int            `json:"non_null_count" yaml:"non_null_count"`
	// SampleCount is the number of values coverage was measured over, which
	// excludes blanks and so equals NonNullCount.
	SampleCount             int            `json:"sample_count" yaml:"sample_count"`
	UnmatchedTop            []string       `json:"unmatched_top" yaml:"unmatched_top"`
	UnmatchedFrequencies    map[string]int `json:"unmatched_frequencies" yaml:"unmatched_frequencies"`
	SuggestedAdditions      []string       `json:"suggested_additions" yaml:"suggested_additions"`
	SuggestedHeaderPatterns []string       `json:"suggested_header_patterns" yaml:"suggested_header_patterns"`
	DecisionReason          DecisionReason `json:"decision_reason" yaml:"decision_reason"`
}
