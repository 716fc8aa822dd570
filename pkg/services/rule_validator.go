package services

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/normalize"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
)

const (
	reasonEmptyExample = "Empty or null example"
	maxSuggestions     = 3
)

var genericNegativeSuggestions = []string{
	"Random text that shouldn't match",
	"12345",
	"!@#$%",
}

// RuleValidator checks rules against example values before they are
// persisted.
type RuleValidator interface {
	// Validate never returns an error: failures are reported in the result.
	Validate(rule *models.SemanticTypeRule, positives, negatives []string) *models.ValidationResult
	// ValidateStructure checks that the rule carries the payload its kind
	// requires.
	ValidateStructure(rule *models.SemanticTypeRule) error
}

type ruleValidator struct {
	cache  *patterns.Cache
	logger *zap.Logger
}

// NewRuleValidator creates a RuleValidator.
func NewRuleValidator(cache *patterns.Cache, logger *zap.Logger) RuleValidator {
	return &ruleValidator{
		cache:  cache,
		logger: logger.Named("rule-validator"),
	}
}

var _ RuleValidator = (*ruleValidator)(nil)

func (v *ruleValidator) Validate(rule *models.SemanticTypeRule, positives, negatives []string) *models.ValidationResult {
	result := &models.ValidationResult{
		PositiveExampleResults: []models.ExampleResult{},
		NegativeExampleResults: []models.ExampleResult{},
	}
	if rule == nil {
		result.Error = "rule is required"
		return result
	}

	switch rule.Kind {
	case models.RuleKindRegexSet:
		v.validateRegexSet(rule.Patterns(), positives, negatives, result)
	case models.RuleKindFiniteList:
		v.validateFiniteList(rule, positives, negatives, result)
	case models.RuleKindCodeBacked:
		v.validateCodeBacked(rule, positives, negatives, result)
	default:
		result.Error = fmt.Sprintf("unsupported plugin type %q", rule.Kind)
	}
	return result
}

// ============================================================================
// Regex sets
// ============================================================================

func (v *ruleValidator) validateRegexSet(alternatives, positives, negatives []string, result *models.ValidationResult) {
	alternatives = nonBlank(alternatives)
	if len(alternatives) == 0 {
		result.Error = "No regex pattern found in semantic type"
		return
	}

	full := make([]*regexp.Regexp, 0, len(alternatives))
	for _, p := range alternatives {
		re, err := v.cache.CompileFull(p)
		if err != nil {
			result.Error = fmt.Sprintf("Invalid regex pattern %q: %v", p, err)
			return
		}
		full = append(full, re)
	}

	shown := strings.Join(alternatives, " | ")
	v.checkExamples(positives, negatives, result, func(example string) (bool, string) {
		if patterns.FullMatchAny(full, example) {
			return true, "pattern: " + shown
		}
		return false, "pattern: " + shown
	}, regexReasons)

	if !result.Valid {
		pos, neg := result.MatchedCounts()
		result.Error = fmt.Sprintf(
			"Pattern validation failed: %d/%d positive examples matched, %d/%d negative examples correctly rejected",
			pos, len(positives), neg, len(negatives))
		result.SuggestedPositiveExamples = suggestPositiveExamples(alternatives)
		result.SuggestedNegativeExamples = suggestNegativeExamples(full)
	}
}

var regexReasons = reasonSet{
	positiveMatched:   func(detail string) string { return "Correctly matched by " + detail },
	positiveUnmatched: func(detail string) string { return "Failed to match " + detail },
	negativeMatched:   func(detail string) string { return "Incorrectly matched by " + detail },
	negativeRejected:  func(detail string) string { return "Correctly rejected by " + detail },
}

func suggestPositiveExamples(alternatives []string) []string {
	joined := strings.Join(alternatives, "|")
	var out []string
	if strings.Contains(joined, `\d`) || strings.Contains(joined, "0-9") {
		out = append(out, "Example with digits: ABC123")
	}
	if strings.Contains(joined, "A-Z") {
		out = append(out, "Example with uppercase: SAMPLE")
	}
	if strings.Contains(joined, "@") {
		out = append(out, "Example with @: user@example.com")
	}
	return out
}

// suggestNegativeExamples proposes generic values the rule rejects.
func suggestNegativeExamples(full []*regexp.Regexp) []string {
	var out []string
	for _, s := range genericNegativeSuggestions {
		if len(out) == maxSuggestions {
			break
		}
		if !patterns.FullMatchAny(full, s) {
			out = append(out, s)
		}
	}
	return out
}

// ============================================================================
// Finite lists
// ============================================================================

func (v *ruleValidator) validateFiniteList(rule *models.SemanticTypeRule, positives, negatives []string, result *models.ValidationResult) {
	var members []string
	if rule.FiniteList != nil {
		members = nonBlank(rule.FiniteList.Members)
	}
	if len(members) == 0 {
		result.Error = "No list values found in semantic type"
		return
	}

	exact := make(map[string]struct{}, len(members))
	upper := make(map[string]struct{}, len(members))
	for _, m := range members {
		exact[m] = struct{}{}
		upper[normalize.Upper(m)] = struct{}{}
	}

	result.Notes = append(result.Notes, fmt.Sprintf(
		"The compiled rule stores all %d list members upper-cased, so matching is case-insensitive", len(members)))

	v.checkExamples(positives, negatives, result, func(example string) (bool, string) {
		if _, ok := exact[example]; ok {
			return true, "exact match in list"
		}
		u := normalize.Upper(example)
		if _, ok := upper[u]; ok {
			return true, fmt.Sprintf("case-insensitive match in list (stored as %q)", u)
		}
		return false, fmt.Sprintf("list of %d values", len(members))
	}, listReasons)

	if !result.Valid {
		pos, neg := result.MatchedCounts()
		result.Error = fmt.Sprintf(
			"List validation failed: %d/%d positive examples found, %d/%d negative examples correctly rejected",
			pos, len(positives), neg, len(negatives))
		if pos < len(positives) {
			result.SuggestedPositiveExamples = firstN(members, maxSuggestions)
		}
		if neg < len(negatives) {
			result.SuggestedNegativeExamples = firstN(genericNegativeSuggestions, maxSuggestions)
		}
	}
}

var listReasons = reasonSet{
	positiveMatched:   func(detail string) string { return "Found " + detail },
	positiveUnmatched: func(detail string) string { return "Not found in " + detail },
	negativeMatched:   func(detail string) string { return "Incorrectly found: " + detail },
	negativeRejected:  func(detail string) string { return "Correctly not found in " + detail },
}

// ============================================================================
// Code-backed rules
// ============================================================================

func (v *ruleValidator) validateCodeBacked(rule *models.SemanticTypeRule, positives, negatives []string, result *models.ValidationResult) {
	var hints []string
	for _, h := range nonBlank(rule.Patterns()) {
		if _, err := v.cache.CompileFull(h); err != nil {
			v.logger.Debug("Ignoring uncompilable regex hint",
				zap.String("semantic_type", rule.Name),
				zap.String("pattern", logging.TruncatePattern(h)))
			continue
		}
		hints = append(hints, h)
	}

	if len(hints) > 0 {
		result.Notes = append(result.Notes,
			"Validated against regex hints extracted from the matcher class; the class itself may accept or reject more values")
		v.validateRegexSet(hints, positives, negatives, result)
		return
	}

	for _, p := range positives {
		result.PositiveExampleResults = append(result.PositiveExampleResults, models.ExampleResult{
			Example: p,
			Matched: true,
			Reason:  "Code-backed matcher requires runtime execution; assumed to match",
		})
	}
	for _, n := range negatives {
		result.NegativeExampleResults = append(result.NegativeExampleResults, models.ExampleResult{
			Example: n,
			Matched: false,
			Reason:  "Code-backed matcher requires runtime execution; assumed not to match",
		})
	}
	result.Valid = true
	result.Notes = append(result.Notes,
		"This rule cannot be executed locally; confirm its behavior once it is registered with the engine")
}

// ============================================================================
// Shared
// ============================================================================

type reasonSet struct {
	positiveMatched   func(string) string
	positiveUnmatched func(string) string
	negativeMatched   func(string) string
	negativeRejected  func(string) string
}

// checkExamples fills per-example results and sets Valid.
func (v *ruleValidator) checkExamples(
	positives, negatives []string,
	result *models.ValidationResult,
	match func(example string) (bool, string),
	reasons reasonSet,
) {
	valid := true
	for _, ex := range positives {
		r := models.ExampleResult{Example: ex}
		switch {
		case strings.TrimSpace(ex) == "":
			r.Reason = reasonEmptyExample
		default:
			var detail string
			r.Matched, detail = match(ex)
			if r.Matched {
				r.Reason = reasons.positiveMatched(detail)
			} else {
				r.Reason = reasons.positiveUnmatched(detail)
			}
		}
		if !r.Matched {
			valid = false
		}
		result.PositiveExampleResults = append(result.PositiveExampleResults, r)
	}

	for _, ex := range negatives {
		r := models.ExampleResult{Example: ex}
		switch {
		case strings.TrimSpace(ex) == "":
			r.Reason = reasonEmptyExample
		default:
			var detail string
			r.Matched, detail = match(ex)
			if r.Matched {
				r.Reason = reasons.negativeMatched(detail)
				valid = false
			} else {
				r.Reason = reasons.negativeRejected(detail)
			}
		}
		result.NegativeExampleResults = append(result.NegativeExampleResults, r)
	}
	result.Valid = valid
}

// ValidateStructure rejects rules the engine cannot load.
func (v *ruleValidator) ValidateStructure(rule *models.SemanticTypeRule) error {
	if rule == nil {
		return apperrors.NewRuleError("", "rule is required")
	}
	name := strings.TrimSpace(rule.Name)
	if name == "" {
		return apperrors.NewRuleError("", "semantic type name is required")
	}

	switch rule.Kind {
	case models.RuleKindRegexSet:
		alternatives := nonBlank(rule.Patterns())
		if len(alternatives) == 0 {
			return apperrors.NewRuleError(name, "regex rule requires at least one pattern")
		}
		for _, p := range alternatives {
			if _, err := v.cache.Compile(p); err != nil {
				return apperrors.NewRuleError(name, fmt.Sprintf("invalid regex pattern %q: %v", p, err))
			}
		}
	case models.RuleKindFiniteList:
		if rule.FiniteList == nil || len(rule.FiniteList.Members) == 0 {
			return apperrors.NewRuleError(name, "list rule requires at least one member")
		}
		for _, m := range rule.FiniteList.Members {
			if strings.TrimSpace(m) == "" {
				return apperrors.NewRuleError(name, "list members must not be blank")
			}
		}
	case models.RuleKindCodeBacked:
		if rule.CodeBacked == nil || strings.TrimSpace(rule.CodeBacked.ClassName) == "" {
			return apperrors.NewRuleError(name, "code-backed rule requires a class reference")
		}
		if rule.CodeBacked.Signature == "" {
			v.logger.Warn("Code-backed rule has no signature", zap.String("semantic_type", name))
		}
	default:
		return fmt.Errorf("rule %q: %w: %q", name, apperrors.ErrUnsupportedKind, rule.Kind)
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	return append([]string(nil), values...)
}
