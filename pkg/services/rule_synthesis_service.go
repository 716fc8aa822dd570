package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/metrics"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/normalize"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/repositories"
)

const (
	finiteRulePriority = 880
	regexRulePriority  = 820
	regexRuleSuffix    = "_REGEX"
	maxSlugLength      = 40
	fallbackTypeName   = "CUSTOM.TYPE"
	customNamespace    = "CUSTOM."

	synthesisRationale = "Generated finite and optional regex plugin with learned headers and diagnostics."
)

var slugSeparators = regexp.MustCompile(`[^A-Z0-9]+`)

var errNoRuleStore = errors.New("no rule store configured")

// RuleIndexer keeps the similarity index in step with stored rules.
type RuleIndexer interface {
	Reindex(ctx context.Context, rule *models.SemanticTypeRule) error
	Remove(ctx context.Context, name string) error
}

// RuleSynthesisService learns rules from examples and a column sample.
type RuleSynthesisService interface {
	// Synthesize always returns a result for a non-nil request. Persistence
	// failures are recorded on the result, never returned.
	Synthesize(ctx context.Context, req *models.SynthesisRequest, sample []string) (*models.SynthesisResult, error)
}

type ruleSynthesisService struct {
	learner     HeaderPatternLearner
	shapes      ShapeRegexSynthesizer
	diagnostics CoverageDiagnostics
	validator   RuleValidator
	compiler    PluginCompiler
	store       repositories.RuleStore
	indexer     RuleIndexer
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewRuleSynthesisService creates a RuleSynthesisService. store and indexer
// may be nil; a persist request then records a failed outcome.
func NewRuleSynthesisService(
	learner HeaderPatternLearner,
	shapes ShapeRegexSynthesizer,
	diagnostics CoverageDiagnostics,
	validator RuleValidator,
	compiler PluginCompiler,
	store repositories.RuleStore,
	indexer RuleIndexer,
	m *metrics.Metrics,
	logger *zap.Logger,
) RuleSynthesisService {
	return &ruleSynthesisService{
		learner:     learner,
		shapes:      shapes,
		diagnostics: diagnostics,
		validator:   validator,
		compiler:    compiler,
		store:       store,
		indexer:     indexer,
		metrics:     m,
		logger:      logger.Named("rule-synthesis"),
		now:         time.Now,
	}
}

var _ RuleSynthesisService = (*ruleSynthesisService)(nil)

func (s *ruleSynthesisService) Synthesize(ctx context.Context, req *models.SynthesisRequest, sample []string) (*models.SynthesisResult, error) {
	if req == nil {
		return nil, fmt.Errorf("synthesis request is required")
	}
	name := typeNameFor(req)

	canonical := normalize.CanonicalList(normalize.FilterInvalid(req.PositiveValues, req.NegativeValues))
	shapes := s.shapes.Synthesize(req.PositiveValues, req.NegativeValues)
	headers := s.learner.Learn(req.PositiveHeaders, req.NegativeHeaders)

	finite := &models.SemanticTypeRule{
		Name:        name,
		Description: req.Description,
		Kind:        models.RuleKindFiniteList,
		BaseType:    models.DefaultBaseType,
		Threshold:   orDefault(req.FiniteThreshold, models.DefaultFiniteThreshold),
		Priority:    finiteRulePriority,
		MinSamples:  req.MinSamples,
		LocaleTag:   models.AnyLocale,
		FiniteList: &models.FiniteListPayload{
			Members:     canonical,
			ContentType: models.ContentTypeInline,
		},
		HeaderPatterns: attachableHeaders(headers),
	}

	var regexRule *models.SemanticTypeRule
	if len(shapes) > 0 {
		regexRule = &models.SemanticTypeRule{
			Name:        name + regexRuleSuffix,
			Description: "Shape constraints for " + name,
			Kind:        models.RuleKindRegexSet,
			BaseType:    models.DefaultBaseType,
			Threshold:   orDefault(req.RegexThreshold, models.DefaultRegexThreshold),
			Priority:    regexRulePriority,
			MinSamples:  req.MinSamples,
			LocaleTag:   models.AnyLocale,
			RegexSet:    &models.RegexSetPayload{Patterns: shapes},
		}
	}

	reason := decisionFor(canonical, shapes)
	diag := s.diagnostics.Compute(sample, canonical, shapes, req.TopKUnmatched, reason)
	for _, h := range headers {
		if !h.IsNegativeGuard() {
			diag.SuggestedHeaderPatterns = append(diag.SuggestedHeaderPatterns, h.Pattern)
		}
	}

	if req.AutoExtend && len(diag.SuggestedAdditions) > 0 {
		additions := normalize.FilterInvalid(diag.SuggestedAdditions, req.NegativeValues)
		finite.FiniteList.Members = normalize.Union(finite.FiniteList.Members, additions)
		s.logger.Debug("Extended finite list with unmatched sample values",
			zap.String("semantic_type", name),
			zap.Int("additions", len(additions)))
	}

	result := &models.SynthesisResult{
		RequestID:      uuid.New(),
		SemanticType:   name,
		FiniteRule:     finite,
		RegexRule:      regexRule,
		HeaderPatterns: headers,
		Diagnostics:    diag,
		Rationale:      synthesisRationale,
	}
	s.metrics.ObserveSynthesis(string(reason))

	s.logger.Info("Synthesized rule",
		zap.String("request_id", result.RequestID.String()),
		zap.String("semantic_type", name),
		zap.String("decision", string(reason)),
		zap.Int("members", len(finite.FiniteList.Members)),
		zap.Int("shapes", len(shapes)),
		zap.Int("header_patterns", len(headers)))

	if req.Persist {
		result.Persistence = s.persist(ctx, req, result)
	}
	return result, nil
}

// persist validates, prepares, stores and indexes each rule in turn. Every
// failure becomes an outcome on the result.
func (s *ruleSynthesisService) persist(ctx context.Context, req *models.SynthesisRequest, result *models.SynthesisResult) []models.PersistOutcome {
	negatives := normalizedNonEmpty(req.NegativeValues)
	outcomes := []models.PersistOutcome{
		s.persistRule(ctx, result.FiniteRule, normalize.FilterInvalid(req.PositiveValues, req.NegativeValues), negatives),
	}
	if result.RegexRule != nil {
		outcomes = append(outcomes, s.persistRule(ctx, result.RegexRule, normalizedNonEmpty(req.PositiveValues), negatives))
	}
	return outcomes
}

func (s *ruleSynthesisService) persistRule(ctx context.Context, rule *models.SemanticTypeRule, positives, negatives []string) (outcome models.PersistOutcome) {
	outcome.SemanticType = rule.Name
	fail := func(stage string, err error) models.PersistOutcome {
		outcome.FailedStage = stage
		outcome.Error = logging.SanitizeError(err)
		s.metrics.ObservePersistFailure(stage)
		s.logger.Warn("Rule persistence failed",
			zap.String("semantic_type", rule.Name),
			zap.String("stage", stage),
			zap.String("error", outcome.Error))
		return outcome
	}

	validation := s.validator.Validate(rule, positives, negatives)
	outcome.Validation = validation
	if !validation.Valid {
		return fail(models.PersistStageValidate, errors.New(validation.Error))
	}

	prepared, err := s.compiler.Prepare(rule)
	if err != nil {
		return fail(models.PersistStageCompile, err)
	}
	if !prepared.IsBuiltIn && prepared.CreatedAt == 0 {
		prepared.CreatedAt = s.now().UnixMilli()
	}

	if s.store == nil {
		return fail(models.PersistStageStore, errNoRuleStore)
	}
	stored, err := s.save(ctx, prepared)
	if err != nil {
		return fail(models.PersistStageStore, err)
	}
	outcome.Stored = true

	if s.indexer == nil {
		return outcome
	}
	if err := s.indexer.Reindex(ctx, stored); err != nil {
		return fail(models.PersistStageIndex, err)
	}
	outcome.Indexed = true
	return outcome
}

// save updates an existing rule of the same name, otherwise creates it.
func (s *ruleSynthesisService) save(ctx context.Context, rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	exists, err := s.store.Exists(ctx, rule.Name)
	if err != nil {
		return nil, fmt.Errorf("check existing rule: %w", err)
	}
	if exists {
		return s.store.Update(ctx, rule)
	}
	return s.store.Save(ctx, rule)
}

// attachableHeaders copies learned patterns onto a rule. Positive patterns
// become mandatory; guards stay optional.
func attachableHeaders(headers []models.HeaderPatternCandidate) []models.HeaderPatternCandidate {
	out := make([]models.HeaderPatternCandidate, len(headers))
	for i, h := range headers {
		h.Mandatory = !h.IsNegativeGuard()
		out[i] = h
	}
	return out
}

func decisionFor(canonical, shapes []string) models.DecisionReason {
	switch {
	case len(canonical) > 0:
		return models.DecisionFiniteMatch
	case len(shapes) > 0:
		return models.DecisionRegexMatch
	}
	return models.DecisionRejected
}

func typeNameFor(req *models.SynthesisRequest) string {
	if name := strings.TrimSpace(req.TypeName); name != "" {
		return name
	}
	return slugTypeName(req.Description)
}

// slugTypeName derives a namespaced rule name from a description.
func slugTypeName(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return fallbackTypeName
	}
	slug := slugSeparators.ReplaceAllString(strings.ToUpper(description), "_")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if !strings.Contains(slug, ".") {
		slug = customNamespace + slug
	}
	return slug
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
