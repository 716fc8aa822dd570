package models

import (
	"github.com/google/uuid"
)

// Synthesis defaults, overridable per request.
const (
	DefaultFiniteThreshold = 92
	DefaultRegexThreshold  = 96
	DefaultTopKUnmatched   = 10
	DefaultMinSamples      = 5
)

// SynthesisRequest carries the examples a rule is learned from.
// Either TypeName or Description names the rule.
type SynthesisRequest struct {
	TypeName        string   `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	PositiveValues  []string `json:"positive_values,omitempty" yaml:"positive_values,omitempty"`
	NegativeValues  []string `json:"negative_values,omitempty" yaml:"negative_values,omitempty"`
	PositiveHeaders []string `json:"positive_headers,omitempty" yaml:"positive_headers,omitempty"`
	NegativeHeaders []string `json:"negative_headers,omitempty" yaml:"negative_headers,omitempty"`
	FiniteThreshold float64  `json:"finite_threshold" yaml:"finite_threshold"`
	RegexThreshold  float64  `json:"regex_threshold" yaml:"regex_threshold"`
	TopKUnmatched   int      `json:"top_k_unmatched" yaml:"top_k_unmatched"`
	MinSamples      int      `json:"min_samples" yaml:"min_samples"`
	AutoExtend      bool     `json:"auto_extend" yaml:"auto_extend"`
	Persist         bool     `json:"persist" yaml:"persist"`
}

// DefaultSynthesisRequest returns a request with default thresholds and
// auto-extend enabled. Decode request files on top of it.
func DefaultSynthesisRequest() *SynthesisRequest {
	return &SynthesisRequest{
		FiniteThreshold: DefaultFiniteThreshold,
		RegexThreshold:  DefaultRegexThreshold,
		TopKUnmatched:   DefaultTopKUnmatched,
		MinSamples:      DefaultMinSamples,
		AutoExtend:      true,
	}
}

// Persistence stages, in the order the orchestrator runs them.
const (
	PersistStageValidate = "validate"
	PersistStageCompile  = "compile"
	PersistStageStore    = "store"
	PersistStageIndex    = "index"
)

// PersistOutcome records what happened when one synthesized rule was
// handed to storage and the index. A failure never unwinds the synthesis.
type PersistOutcome struct {
	SemanticType string            `json:"semantic_type" yaml:"semantic_type"`
	Stored       bool              `json:"stored" yaml:"stored"`
	Indexed      bool              `json:"indexed" yaml:"indexed"`
	FailedStage  string            `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
	Validation   *ValidationResult `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// OK reports whether every stage succeeded.
func (o PersistOutcome) OK() bool {
	return o.Error == ""
}

// SynthesisResult is returned for every synthesis request, including when
// persistence failed.
type SynthesisResult struct {
	RequestID      uuid.UUID                `json:"request_id" yaml:"request_id"`
	SemanticType   string                   `json:"semantic_type" yaml:"semantic_type"`
	FiniteRule     *SemanticTypeRule        `json:"finite_rule" yaml:"finite_rule"`
	RegexRule      *SemanticTypeRule        `json:"regex_rule,omitempty" yaml:"regex_rule,omitempty"`
	HeaderPatterns []HeaderPatternCandidate `json:"header_patterns" yaml:"header_patterns"`
	Diagnostics    ColumnDiagnostics        `json:"diagnostics" yaml:"diagnostics"`
	Rationale      string                   `json:"rationale" yaml:"rationale"`
	Persistence    []PersistOutcome         `json:"persistence,omitempty" yaml:"persistence,omitempty"`
}

// Rules returns the synthesized rules, finite list first.
func (r *SynthesisResult) Rules() []*SemanticTypeRule {
	rules := []*SemanticTypeRule{r.FiniteRule}
	if r.RegexRule != nil {
		rules = append(rules, r.RegexRule)
	}
	return rules
}
