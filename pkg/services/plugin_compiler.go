package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/metrics"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/normalize"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/plugin"
)

// engineBaseTypes are the base types the engine accepts.
var engineBaseTypes = map[string]struct{}{
	"STRING":         {},
	"LONG":           {},
	"DOUBLE":         {},
	"BOOLEAN":        {},
	"LOCALDATE":      {},
	"LOCALTIME":      {},
	"LOCALDATETIME":  {},
	"ZONEDDATETIME":  {},
	"OFFSETDATETIME": {},
}

// PluginCompiler turns rules into engine plugins and registers them.
type PluginCompiler interface {
	// Prepare returns a copy of rule with the engine's invariants applied.
	Prepare(rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error)
	// Compile prepares rule and encodes it as a plugin.
	Compile(rule *models.SemanticTypeRule) (plugin.Plugin, error)
	// RegisterAll attempts each rule on its own so one bad rule cannot
	// stop the rest of the batch.
	RegisterAll(ctx context.Context, registrar plugin.Registrar, rules []*models.SemanticTypeRule) models.RegistrationReport
}

type pluginCompiler struct {
	cache   *patterns.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewPluginCompiler creates a PluginCompiler. m may be nil.
func NewPluginCompiler(cache *patterns.Cache, m *metrics.Metrics, logger *zap.Logger) PluginCompiler {
	return &pluginCompiler{
		cache:   cache,
		metrics: m,
		logger:  logger.Named("plugin-compiler"),
	}
}

var _ PluginCompiler = (*pluginCompiler)(nil)

func (c *pluginCompiler) Prepare(rule *models.SemanticTypeRule) (*models.SemanticTypeRule, error) {
	if rule == nil {
		return nil, apperrors.NewRuleError("", "rule is required")
	}
	r := rule.Clone()
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return nil, apperrors.NewRuleError("", "semantic type name is required")
	}

	if r.Priority == 0 {
		r.Priority = models.DefaultPriority
	}
	if !r.IsBuiltIn && r.Priority < models.MinCustomPriority {
		c.logger.Warn("Raising custom rule priority to the engine minimum",
			zap.String("semantic_type", r.Name),
			zap.Int("priority", r.Priority),
			zap.Int("minimum", models.MinCustomPriority))
		c.metrics.ObservePriorityClamp()
		r.Priority = models.MinCustomPriority
	}

	r.BaseType = normalizeBaseType(r.BaseType)
	if r.LocaleTag == "" {
		r.LocaleTag = models.AnyLocale
	}
	if r.Threshold <= 0 {
		r.Threshold = models.DefaultThreshold
	}

	switch r.Kind {
	case models.RuleKindFiniteList:
		if err := c.prepareFiniteList(r); err != nil {
			return nil, err
		}
	case models.RuleKindRegexSet:
		if err := c.prepareRegexSet(r); err != nil {
			return nil, err
		}
	case models.RuleKindCodeBacked:
		if r.CodeBacked == nil || strings.TrimSpace(r.CodeBacked.ClassName) == "" {
			return nil, apperrors.NewRuleError(r.Name, "code-backed rule requires a class reference")
		}
		if r.CodeBacked.Signature == "" {
			c.logger.Warn("Code-backed rule has no signature", zap.String("semantic_type", r.Name))
		}
	default:
		return nil, fmt.Errorf("rule %q: %w: %q", r.Name, apperrors.ErrUnsupportedKind, r.Kind)
	}
	return r, nil
}

func (c *pluginCompiler) prepareFiniteList(r *models.SemanticTypeRule) error {
	if r.FiniteList == nil {
		return apperrors.NewRuleError(r.Name, "list rule requires members")
	}
	fl := r.FiniteList

	switch strings.ToLower(fl.ContentType) {
	case "", models.ContentTypeInline, models.ContentTypeList:
		fl.ContentType = models.ContentTypeInline
	case models.ContentTypeResource:
		fl.ContentType = models.ContentTypeResource
		if fl.Reference == "" && len(fl.Members) == 0 {
			return apperrors.NewRuleError(r.Name, "resource list requires a reference")
		}
	default:
		return apperrors.NewRuleError(r.Name, fmt.Sprintf("unknown list content type %q", fl.ContentType))
	}

	seen := make(map[string]struct{}, len(fl.Members))
	members := make([]string, 0, len(fl.Members))
	for _, m := range fl.Members {
		u := normalize.Upper(strings.TrimSpace(m))
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		members = append(members, u)
	}
	if len(members) == 0 && fl.ContentType == models.ContentTypeInline {
		return apperrors.NewRuleError(r.Name, "list rule requires at least one member")
	}
	fl.Members = members

	if r.BackoutPattern == "" {
		r.BackoutPattern = models.DefaultBackoutPattern
	}
	return nil
}

func (c *pluginCompiler) prepareRegexSet(r *models.SemanticTypeRule) error {
	if r.RegexSet == nil || len(nonBlank(r.RegexSet.Patterns)) == 0 {
		return apperrors.NewRuleError(r.Name, "regex rule requires at least one pattern")
	}
	alternatives := nonBlank(r.RegexSet.Patterns)
	for _, p := range alternatives {
		if reason := c.regexPreflight(p); reason != "" {
			return apperrors.NewRuleError(r.Name, fmt.Sprintf("%s: %s", reason, logging.TruncatePattern(p)))
		}
	}
	r.RegexSet.Patterns = alternatives
	return nil
}

// regexPreflight returns a non-empty reason when the engine is known to
// fail translating the pattern.
func (c *pluginCompiler) regexPreflight(p string) string {
	if _, err := c.cache.Compile(p); err != nil {
		return "pattern does not compile"
	}
	if strings.Count(p, `"`)%2 != 0 {
		return "pattern has unbalanced quotes"
	}
	if hasLineBreakInClass(p) {
		return "pattern has a line break inside a character class"
	}
	return ""
}

// hasLineBreakInClass reports a raw CR or LF between an unescaped '[' and
// its closing ']'.
func hasLineBreakInClass(p string) bool {
	inClass := false
	escaped := false
	for i := 0; i < len(p); i++ {
		ch := p[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '[' && !inClass:
			inClass = true
		case ch == ']' && inClass:
			inClass = false
		case inClass && (ch == '\n' || ch == '\r'):
			return true
		}
	}
	return false
}

func normalizeBaseType(baseType string) string {
	u := strings.ToUpper(strings.TrimSpace(baseType))
	if _, ok := engineBaseTypes[u]; ok {
		return u
	}
	return models.DefaultBaseType
}

// listSignature derives the engine signature for an inline list plugin.
func listSignature(name string, members int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("custom_%d=%d", h.Sum32(), members)
}

func (c *pluginCompiler) Compile(rule *models.SemanticTypeRule) (plugin.Plugin, error) {
	r, err := c.Prepare(rule)
	if err != nil {
		return nil, err
	}

	common := plugin.Common{
		Name:          r.Name,
		Description:   r.Description,
		Threshold:     int(math.Round(r.Threshold)),
		BaseType:      r.BaseType,
		Priority:      r.Priority,
		MinSamples:    r.MinSamples,
		Documentation: r.Documentation,
		InvalidList:   r.InvalidList,
		IgnoreList:    r.IgnoreList,
	}
	locale := plugin.Locale{LocaleTag: r.LocaleTag}
	for _, hp := range r.HeaderPatterns {
		locale.HeaderRegExps = append(locale.HeaderRegExps, plugin.HeaderRegExp{
			RegExp:     hp.Pattern,
			Confidence: hp.Confidence,
			Mandatory:  hp.Mandatory,
		})
	}

	switch r.Kind {
	case models.RuleKindFiniteList:
		common.Locales = []plugin.Locale{locale}
		return &plugin.ListPlugin{
			Common: common,
			Content: plugin.Content{
				Type:      r.FiniteList.ContentType,
				Reference: r.FiniteList.Reference,
				Members:   r.FiniteList.Members,
			},
			Backout:   r.BackoutPattern,
			Signature: listSignature(r.Name, len(r.FiniteList.Members)),
		}, nil
	case models.RuleKindRegexSet:
		for _, p := range r.RegexSet.Patterns {
			locale.MatchEntries = append(locale.MatchEntries, plugin.MatchEntry{
				RegExpReturned:   p,
				IsRegExpComplete: true,
			})
		}
		common.Locales = []plugin.Locale{locale}
		return &plugin.RegexPlugin{Common: common}, nil
	default:
		common.Locales = []plugin.Locale{locale}
		return &plugin.JavaPlugin{
			Common:    common,
			Clazz:     r.CodeBacked.ClassName,
			Signature: r.CodeBacked.Signature,
		}, nil
	}
}

func (c *pluginCompiler) RegisterAll(ctx context.Context, registrar plugin.Registrar, rules []*models.SemanticTypeRule) models.RegistrationReport {
	report := models.RegistrationReport{Outcomes: []models.RegistrationOutcome{}}
	if len(rules) == 0 {
		return report
	}

	c.logger.Info("Registering rules one at a time", zap.Int("count", len(rules)))
	for _, rule := range rules {
		outcome := c.attempt(ctx, registrar, rule)
		c.metrics.ObserveRegistration(outcome.Status)
		report.Add(outcome)
	}
	c.logger.Info("Registration finished",
		zap.Int("registered", report.Registered),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report
}

// attempt compiles and registers a single rule. Registrar panics are
// recovered and reported as failures.
func (c *pluginCompiler) attempt(ctx context.Context, registrar plugin.Registrar, rule *models.SemanticTypeRule) (outcome models.RegistrationOutcome) {
	if rule != nil {
		outcome.SemanticType = rule.Name
	}

	if err := ctx.Err(); err != nil {
		outcome.Status = models.RegistrationFailed
		outcome.Reason = err.Error()
		return outcome
	}

	p, err := c.Compile(rule)
	if err != nil {
		c.logger.Warn("Skipping rule that failed pre-flight",
			zap.String("semantic_type", outcome.SemanticType),
			zap.Error(err))
		outcome.Status = models.RegistrationSkipped
		outcome.Reason = err.Error()
		return outcome
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("Registrar panicked",
				zap.String("semantic_type", outcome.SemanticType),
				zap.Any("panic", rec))
			outcome.Status = models.RegistrationFailed
			outcome.Reason = fmt.Sprintf("registrar panic: %v", rec)
		}
	}()

	if err := registrar.Register(ctx, p); err != nil {
		c.logger.Warn("Engine rejected plugin",
			zap.String("semantic_type", outcome.SemanticType),
			zap.String("error", logging.SanitizeError(err)))
		outcome.Status = models.RegistrationFailed
		outcome.Reason = logging.SanitizeError(err)
		return outcome
	}

	outcome.Status = models.RegistrationRegistered
	return outcome
}
