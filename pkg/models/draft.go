package models

import "strings"

// DraftHeaderPattern is a header regex proposed by a text-generation service.
type DraftHeaderPattern struct {
	RegExp     string `json:"regExp" yaml:"regExp"`
	Confidence int    `json:"confidence" yaml:"confidence"`
}

// RuleDraft is the rule proposal a text-generation service returns. Field
// names follow the JSON the prompt asks for.
type RuleDraft struct {
	SemanticType            string               `json:"semanticType" yaml:"semanticType"`
	Description             string               `json:"description" yaml:"description"`
	BaseType                string               `json:"baseType,omitempty" yaml:"baseType,omitempty"`
	PluginType              string               `json:"pluginType" yaml:"pluginType"`
	RegexPattern            string               `json:"regexPattern,omitempty" yaml:"regexPattern,omitempty"`
	ListValues              []string             `json:"listValues,omitempty" yaml:"listValues,omitempty"`
	Backout                 string               `json:"backout,omitempty" yaml:"backout,omitempty"`
	PositiveContentExamples []string             `json:"positiveContentExamples,omitempty" yaml:"positiveContentExamples,omitempty"`
	NegativeContentExamples []string             `json:"negativeContentExamples,omitempty" yaml:"negativeContentExamples,omitempty"`
	PositiveHeaderExamples  []string             `json:"positiveHeaderExamples,omitempty" yaml:"positiveHeaderExamples,omitempty"`
	NegativeHeaderExamples  []string             `json:"negativeHeaderExamples,omitempty" yaml:"negativeHeaderExamples,omitempty"`
	ConfidenceThreshold     float64              `json:"confidenceThreshold,omitempty" yaml:"confidenceThreshold,omitempty"`
	HeaderPatterns          []DraftHeaderPattern `json:"headerPatterns,omitempty" yaml:"headerPatterns,omitempty"`
	Priority                int                  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Explanation             string               `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// ToRequest turns the draft's examples into a synthesis request.
func (d *RuleDraft) ToRequest() *SynthesisRequest {
	req := DefaultSynthesisRequest()
	req.TypeName = d.SemanticType
	req.Description = d.Description
	req.PositiveValues = append(append([]string{}, d.PositiveContentExamples...), d.ListValues...)
	req.NegativeValues = d.NegativeContentExamples
	req.PositiveHeaders = d.PositiveHeaderExamples
	req.NegativeHeaders = d.NegativeHeaderExamples
	return req
}

// ToRule builds a rule directly from the draft's declared plugin type.
func (d *RuleDraft) ToRule() *SemanticTypeRule {
	rule := &SemanticTypeRule{
		Name:           d.SemanticType,
		Description:    d.Description,
		BaseType:       d.BaseType,
		Threshold:      d.ConfidenceThreshold,
		Priority:       d.Priority,
		BackoutPattern: d.Backout,
		LocaleTag:      AnyLocale,
	}
	for _, hp := range d.HeaderPatterns {
		rule.HeaderPatterns = append(rule.HeaderPatterns, HeaderPatternCandidate{
			Pattern:    hp.RegExp,
			Confidence: hp.Confidence,
		})
	}

	switch RuleKind(strings.ToLower(d.PluginType)) {
	case RuleKindFiniteList:
		rule.Kind = RuleKindFiniteList
		rule.FiniteList = &FiniteListPayload{
			Members:     d.ListValues,
			ContentType: ContentTypeInline,
		}
	case RuleKindCodeBacked:
		rule.Kind = RuleKindCodeBacked
		rule.CodeBacked = &CodeBackedPayload{}
		if d.RegexPattern != "" {
			rule.CodeBacked.RegexHints = []string{d.RegexPattern}
		}
	default:
		rule.Kind = RuleKindRegexSet
		rule.RegexSet = &RegexSetPayload{}
		if d.RegexPattern != "" {
			rule.RegexSet.Patterns = []string{d.RegexPattern}
		}
	}
	return rule
}

// DraftRequest describes the semantic type a text-generation service is
// asked to draft.
type DraftRequest struct {
	TypeName        string   `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	Description     string   `json:"description" yaml:"description"`
	PositiveValues  []string `json:"positive_values,omitempty" yaml:"positive_values,omitempty"`
	NegativeValues  []string `json:"negative_values,omitempty" yaml:"negative_values,omitempty"`
	PositiveHeaders []string `json:"positive_headers,omitempty" yaml:"positive_headers,omitempty"`
	NegativeHeaders []string `json:"negative_headers,omitempty" yaml:"negative_headers,omitempty"`
	ColumnHeader    string   `json:"column_header,omitempty" yaml:"column_header,omitempty"`
	ExistingTypes   []string `json:"existing_types,omitempty" yaml:"existing_types,omitempty"`
}
