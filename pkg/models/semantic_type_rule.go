package models

import (
	"slices"
	"strings"
)

// RuleKind identifies how a semantic type recognizes values.
// The string values match the engine's pluginType field.
type RuleKind string

const (
	RuleKindFiniteList RuleKind = "list"
	RuleKindRegexSet   RuleKind = "regex"
	RuleKindCodeBacked RuleKind = "java"
)

// IsValid reports whether k is one of the supported kinds.
func (k RuleKind) IsValid() bool {
	switch k {
	case RuleKindFiniteList, RuleKindRegexSet, RuleKindCodeBacked:
		return true
	}
	return false
}

// Priority and defaults enforced by the classification engine.
const (
	MinCustomPriority     = 2000
	DefaultPriority       = 2500
	BuiltInPriorityOffset = 2000

	DefaultBackoutPattern = ".*"
	AnyLocale             = "*"
	DefaultBaseType       = "STRING"
	DefaultThreshold      = 95

	// NegativeGuardConfidence marks a header pattern that excludes headers.
	NegativeGuardConfidence = -100
)

// Content types for finite-list payloads.
const (
	ContentTypeInline   = "inline"
	ContentTypeList     = "list" // accepted on input, emitted as inline
	ContentTypeResource = "resource"
)

// HeaderPatternCandidate is a learned regex for column names. Mandatory
// requires the header to match before the engine accepts the type.
type HeaderPatternCandidate struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Confidence int    `json:"confidence" yaml:"confidence"`
	Mandatory  bool   `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
}

// IsNegativeGuard reports whether the candidate only excludes headers.
func (c HeaderPatternCandidate) IsNegativeGuard() bool {
	return c.Confidence == NegativeGuardConfidence
}

// FiniteListPayload is the canonical value set of a FiniteList rule.
type FiniteListPayload struct {
	Members     []string `json:"members" yaml:"members"`
	ContentType string   `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Reference   string   `json:"reference,omitempty" yaml:"reference,omitempty"` // resource name when not inline
}

// RegexSetPayload holds ordered regex alternatives. A value matches the
// rule if it fully matches any alternative.
type RegexSetPayload struct {
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// CodeBackedPayload references an engine-side matcher class.
type CodeBackedPayload struct {
	ClassName  string   `json:"class_name" yaml:"class_name"`
	Signature  string   `json:"signature,omitempty" yaml:"signature,omitempty"`
	RegexHints []string `json:"regex_hints,omitempty" yaml:"regex_hints,omitempty"`
}

// Documentation links a rule to an external reference.
type Documentation struct {
	Source    string `json:"source" yaml:"source"`
	Reference string `json:"reference" yaml:"reference"`
}

// SemanticTypeRule is the internal rule model. Exactly one of FiniteList,
// RegexSet or CodeBacked is set, selected by Kind. Name is the identity.
type SemanticTypeRule struct {
	Name           string                   `json:"semantic_type" yaml:"semantic_type"`
	Description    string                   `json:"description" yaml:"description"`
	Kind           RuleKind                 `json:"kind" yaml:"kind"`
	BaseType       string                   `json:"base_type,omitempty" yaml:"base_type,omitempty"`
	Threshold      float64                  `json:"threshold" yaml:"threshold"` // percent, 0-100
	Priority       int                      `json:"priority" yaml:"priority"`
	MinSamples     int                      `json:"min_samples,omitempty" yaml:"min_samples,omitempty"`
	IsBuiltIn      bool                     `json:"is_built_in" yaml:"is_built_in"`
	CreatedAt      int64                    `json:"created_at" yaml:"created_at"` // epoch millis, 0 for built-ins
	BackoutPattern string                   `json:"backout_pattern,omitempty" yaml:"backout_pattern,omitempty"`
	LocaleTag      string                   `json:"locale_tag,omitempty" yaml:"locale_tag,omitempty"`
	HeaderPatterns []HeaderPatternCandidate `json:"header_patterns,omitempty" yaml:"header_patterns,omitempty"`
	FiniteList     *FiniteListPayload       `json:"finite_list,omitempty" yaml:"finite_list,omitempty"`
	RegexSet       *RegexSetPayload         `json:"regex_set,omitempty" yaml:"regex_set,omitempty"`
	CodeBacked     *CodeBackedPayload       `json:"code_backed,omitempty" yaml:"code_backed,omitempty"`
	Documentation  []Documentation          `json:"documentation,omitempty" yaml:"documentation,omitempty"`
	InvalidList    []string                 `json:"invalid_list,omitempty" yaml:"invalid_list,omitempty"`
	IgnoreList     []string                 `json:"ignore_list,omitempty" yaml:"ignore_list,omitempty"`
}

// Clone returns a deep copy of the rule.
func (r *SemanticTypeRule) Clone() *SemanticTypeRule {
	if r == nil {
		return nil
	}
	c := *r
	c.HeaderPatterns = slices.Clone(r.HeaderPatterns)
	c.Documentation = slices.Clone(r.Documentation)
	c.InvalidList = slices.Clone(r.InvalidList)
	c.IgnoreList = slices.Clone(r.IgnoreList)
	if r.FiniteList != nil {
		fl := *r.FiniteList
		fl.Members = slices.Clone(r.FiniteList.Members)
		c.FiniteList = &fl
	}
	if r.RegexSet != nil {
		c.RegexSet = &RegexSetPayload{Patterns: slices.Clone(r.RegexSet.Patterns)}
	}
	if r.CodeBacked != nil {
		cb := *r.CodeBacked
		cb.RegexHints = slices.Clone(r.CodeBacked.RegexHints)
		c.CodeBacked = &cb
	}
	return &c
}

// Patterns returns the value-matching regexes the rule exposes: the regex
// alternatives of a RegexSet, or the extracted hints of a CodeBacked rule.
func (r *SemanticTypeRule) Patterns() []string {
	switch {
	case r.RegexSet != nil:
		return r.RegexSet.Patterns
	case r.CodeBacked != nil:
		return r.CodeBacked.RegexHints
	}
	return nil
}

// Examples returns up to limit representative values for the rule.
func (r *SemanticTypeRule) Examples(limit int) []string {
	var src []string
	if r.FiniteList != nil {
		src = r.FiniteList.Members
	} else {
		src = r.Patterns()
	}
	if limit > 0 && len(src) > limit {
		src = src[:limit]
	}
	return slices.Clone(src)
}

// HasCustomPatterns reports whether custom differs from builtIn in how it
// matches values: different regex alternatives, list content switched
// between inline and resource, or a different matcher class.
func HasCustomPatterns(custom, builtIn *SemanticTypeRule) bool {
	if custom == nil || builtIn == nil {
		return custom != builtIn
	}
	if custom.Kind != builtIn.Kind {
		return true
	}
	switch custom.Kind {
	case RuleKindRegexSet:
		return !slices.Equal(custom.Patterns(), builtIn.Patterns())
	case RuleKindFiniteList:
		return isInlineList(custom.FiniteList) != isInlineList(builtIn.FiniteList)
	case RuleKindCodeBacked:
		var a, b string
		if custom.CodeBacked != nil {
			a = custom.CodeBacked.ClassName
		}
		if builtIn.CodeBacked != nil {
			b = builtIn.CodeBacked.ClassName
		}
		return a != b
	}
	return false
}

func isInlineList(p *FiniteListPayload) bool {
	if p == nil {
		return false
	}
	ct := strings.ToLower(p.ContentType)
	return ct == "" || ct == ContentTypeInline || ct == ContentTypeList
}
