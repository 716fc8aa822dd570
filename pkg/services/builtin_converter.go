package services

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/plugin"
)

// BuiltInConverter turns the engine's bundled plugin definitions into rules
// so they can be listed, compared and overridden like custom ones.
type BuiltInConverter interface {
	// Convert reads a JSON array of plugin definitions. Definitions not
	// applicable to English or all locales are skipped, as are unknown
	// plugin types.
	Convert(r io.Reader) ([]*models.SemanticTypeRule, error)
}

type builtInConverter struct {
	logger *zap.Logger
}

// NewBuiltInConverter creates a BuiltInConverter.
func NewBuiltInConverter(logger *zap.Logger) BuiltInConverter {
	return &builtInConverter{logger: logger.Named("builtin-converter")}
}

var _ BuiltInConverter = (*builtInConverter)(nil)

func (c *builtInConverter) Convert(r io.Reader) ([]*models.SemanticTypeRule, error) {
	defs, err := plugin.ReadDefinitions(r)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.SemanticTypeRule, 0, len(defs))
	skipped := 0
	for i := range defs {
		def := &defs[i]
		if !def.HasEnglishLocale() {
			skipped++
			continue
		}
		rule, err := convertDefinition(def)
		if err != nil {
			skipped++
			c.logger.Warn("Skipping built-in plugin",
				zap.String("semantic_type", def.SemanticType),
				zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}

	c.logger.Info("Converted built-in plugins",
		zap.Int("converted", len(rules)),
		zap.Int("skipped", skipped))
	return rules, nil
}

func convertDefinition(def *plugin.RawDefinition) (*models.SemanticTypeRule, error) {
	kind := models.RuleKind(strings.ToLower(strings.TrimSpace(def.PluginType)))
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedKind, def.PluginType)
	}

	baseType := def.BaseType
	if baseType == "" {
		baseType = models.DefaultBaseType
	}
	rule := &models.SemanticTypeRule{
		Name:           def.SemanticType,
		Description:    def.Description,
		Kind:           kind,
		BaseType:       baseType,
		Threshold:      float64(def.Threshold),
		Priority:       def.Priority + models.BuiltInPriorityOffset,
		MinSamples:     def.MinSamples,
		IsBuiltIn:      true,
		BackoutPattern: def.Backout,
		LocaleTag:      models.AnyLocale,
		Documentation:  def.Documentation,
		InvalidList:    def.InvalidList,
		IgnoreList:     def.IgnoreList,
	}

	locale := englishLocale(def.ValidLocales)
	var matchPatterns []string
	if locale != nil {
		rule.LocaleTag = locale.LocaleTag
		for _, h := range locale.HeaderRegExps {
			rule.HeaderPatterns = append(rule.HeaderPatterns, models.HeaderPatternCandidate{
				Pattern:    h.RegExp,
				Confidence: h.Confidence,
				Mandatory:  h.Mandatory,
			})
		}
		for _, m := range locale.MatchEntries {
			if m.RegExpReturned != "" {
				matchPatterns = append(matchPatterns, m.RegExpReturned)
			}
		}
	}

	switch kind {
	case models.RuleKindFiniteList:
		payload := &models.FiniteListPayload{ContentType: models.ContentTypeInline}
		if def.Content != nil {
			switch ct := strings.ToLower(def.Content.Type); ct {
			case "", models.ContentTypeList:
			default:
				payload.ContentType = ct
			}
			payload.Members = def.Content.Members
			payload.Reference = def.Content.Reference
		}
		if payload.ContentType == models.ContentTypeInline && rule.BackoutPattern == "" {
			rule.BackoutPattern = models.DefaultBackoutPattern
		}
		rule.FiniteList = payload
	case models.RuleKindRegexSet:
		rule.RegexSet = &models.RegexSetPayload{Patterns: matchPatterns}
	case models.RuleKindCodeBacked:
		rule.CodeBacked = &models.CodeBackedPayload{
			ClassName:  def.Clazz,
			Signature:  def.Signature,
			RegexHints: matchPatterns,
		}
	}
	return rule, nil
}

// englishLocale returns the first locale entry for "*" or an English tag.
func englishLocale(locales []plugin.Locale) *plugin.Locale {
	for i := range locales {
		for _, tag := range strings.Split(locales[i].LocaleTag, ",") {
			tag = strings.TrimSpace(tag)
			if tag == models.AnyLocale || strings.HasPrefix(tag, "en") {
				return &locales[i]
			}
		}
	}
	return nil
}
