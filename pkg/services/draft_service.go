package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/llm"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

const (
	draftTemperature        = 0.3
	defaultDraftConfidence  = 95
	draftResponsePreviewLen = 200
)

// ============================================================================
// Parser
// ============================================================================

// DraftParser turns a text-generation response into a rule draft.
type DraftParser interface {
	Parse(response string) (*models.RuleDraft, error)
}

type draftParser struct{}

// NewDraftParser creates a DraftParser.
func NewDraftParser() DraftParser {
	return &draftParser{}
}

var _ DraftParser = (*draftParser)(nil)

func (p *draftParser) Parse(response string) (*models.RuleDraft, error) {
	draft, err := llm.ParseJSONResponse[models.RuleDraft](response)
	if err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	draft.SemanticType = strings.TrimSpace(draft.SemanticType)
	if draft.SemanticType == "" {
		return nil, fmt.Errorf("parse draft: semanticType is missing")
	}

	draft.PluginType = strings.ToLower(strings.TrimSpace(draft.PluginType))
	switch {
	case draft.ConfidenceThreshold <= 0:
		draft.ConfidenceThreshold = defaultDraftConfidence
	case draft.ConfidenceThreshold <= 1:
		draft.ConfidenceThreshold = math.Round(draft.ConfidenceThreshold * 100)
	}
	// Generated types always start at the engine's minimum custom priority.
	draft.Priority = models.MinCustomPriority

	if draft.PluginType == string(models.RuleKindFiniteList) &&
		strings.TrimSpace(draft.Backout) == "" && len(draft.ListValues) > 0 {
		draft.Backout = models.DefaultBackoutPattern
	}
	for i := range draft.HeaderPatterns {
		if draft.HeaderPatterns[i].Confidence == 0 {
			draft.HeaderPatterns[i].Confidence = defaultDraftConfidence
		}
	}

	draft.PositiveContentExamples = cleanExamples(draft.PositiveContentExamples)
	draft.NegativeContentExamples = cleanExamples(draft.NegativeContentExamples)
	draft.PositiveHeaderExamples = cleanExamples(draft.PositiveHeaderExamples)
	draft.NegativeHeaderExamples = cleanExamples(draft.NegativeHeaderExamples)
	return &draft, nil
}

// cleanExamples drops placeholders and strips annotations such as
// "ABC (a code)" or wrapping quotes from generated examples.
func cleanExamples(examples []string) []string {
	cleaned := make([]string, 0, len(examples))
	for _, e := range examples {
		if c, ok := cleanExample(e); ok {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

func cleanExample(example string) (string, bool) {
	c := strings.TrimSpace(example)
	if c == "" || strings.EqualFold(c, "null") || strings.EqualFold(c, "undefined") ||
		strings.HasPrefix(c, "e.g.") || c == "..." {
		return "", false
	}
	if open := strings.Index(c, "("); open > 0 && strings.Contains(c, ")") {
		if before := strings.TrimSpace(c[:open]); before != "" {
			c = before
		}
	}
	if len(c) >= 2 && (c[0] == '"' && c[len(c)-1] == '"' || c[0] == '\'' && c[len(c)-1] == '\'') {
		c = strings.TrimSpace(c[1 : len(c)-1])
	}
	return c, c != ""
}

// ============================================================================
// Generator
// ============================================================================

// DraftGenerator asks a text-generation service for a rule draft.
type DraftGenerator interface {
	Generate(ctx context.Context, req *models.DraftRequest) (*models.RuleDraft, error)
}

type draftGenerator struct {
	client llm.Generator
	parser DraftParser
	logger *zap.Logger
}

// NewDraftGenerator creates a DraftGenerator.
func NewDraftGenerator(client llm.Generator, parser DraftParser, logger *zap.Logger) DraftGenerator {
	return &draftGenerator{
		client: client,
		parser: parser,
		logger: logger.Named("draft-generator"),
	}
}

var _ DraftGenerator = (*draftGenerator)(nil)

func (g *draftGenerator) Generate(ctx context.Context, req *models.DraftRequest) (*models.RuleDraft, error) {
	if req == nil || strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("description is required")
	}

	result, err := g.client.GenerateResponse(ctx, buildDraftPrompt(req), draftSystemMessage, draftTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	draft, err := g.parser.Parse(result.Content)
	if err != nil {
		g.logger.Error("Failed to parse draft response",
			zap.String("model", g.client.GetModel()),
			zap.String("response_preview", logging.TruncateString(result.Content, draftResponsePreviewLen)),
			zap.Error(err))
		return nil, err
	}
	if name := strings.TrimSpace(req.TypeName); name != "" {
		draft.SemanticType = name
	}

	g.logger.Info("Generated rule draft",
		zap.String("semantic_type", draft.SemanticType),
		zap.String("plugin_type", draft.PluginType),
		zap.String("model", g.client.GetModel()),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("completion_tokens", result.CompletionTokens))
	return draft, nil
}

const draftSystemMessage = `You design semantic types for a column classification engine. A semantic type recognizes column values either by a finite list of members or by a regular expression, and recognizes column names by header patterns.

Respond with a single JSON object and nothing else.`

func buildDraftPrompt(req *models.DraftRequest) string {
	var sb strings.Builder

	sb.WriteString("# Semantic Type Request\n")
	if req.TypeName != "" {
		sb.WriteString(fmt.Sprintf("Name: %s\n", req.TypeName))
	}
	sb.WriteString(fmt.Sprintf("Description: %s\n", req.Description))
	if req.ColumnHeader != "" {
		sb.WriteString(fmt.Sprintf("Column header: %s\n", req.ColumnHeader))
	}
	writeExampleList(&sb, "Values that must match", req.PositiveValues)
	writeExampleList(&sb, "Values that must not match", req.NegativeValues)
	writeExampleList(&sb, "Headers that must match", req.PositiveHeaders)
	writeExampleList(&sb, "Headers that must not match", req.NegativeHeaders)

	if len(req.ExistingTypes) > 0 {
		sb.WriteString("\n## Existing Semantic Types\n")
		sb.WriteString("Do not reuse these names: ")
		sb.WriteString(strings.Join(req.ExistingTypes, ", "))
		sb.WriteString("\n")
	}

	sb.WriteString(`
## Response Format
{
  "semanticType": "NAMESPACE.NAME in upper case",
  "description": "one sentence",
  "pluginType": "list" or "regex",
  "regexPattern": "pattern that fully matches valid values (regex only)",
  "listValues": ["every member, upper case (list only)"],
  "backout": "pattern that values must match to be considered (list only)",
  "confidenceThreshold": 95,
  "headerPatterns": [{"regExp": "(?i).*name.*", "confidence": 95}],
  "positiveContentExamples": [],
  "negativeContentExamples": [],
  "positiveHeaderExamples": [],
  "negativeHeaderExamples": [],
  "explanation": "why this plugin type fits"
}

Use "list" when the valid values form a closed set, otherwise "regex".
`)
	return sb.String()
}

func writeExampleList(sb *strings.Builder, title string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n## %s\n", title))
	for _, v := range values {
		sb.WriteString(fmt.Sprintf("- %s\n", v))
	}
}
