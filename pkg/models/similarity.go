package models

// SimilarRule is a rule returned by a similarity lookup.
type SimilarRule struct {
	SemanticType string  `json:"semantic_type" yaml:"semantic_type"`
	Description  string  `json:"description" yaml:"description"`
	Score        float64 `json:"score" yaml:"score"`
}
