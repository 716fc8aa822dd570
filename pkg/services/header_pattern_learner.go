package services

import (
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
)

const (
	minVocabularyTokenLength = 2
	minHeaderConfidence      = 60
	maxNegativeGuards        = 3
	maxHeaderPatterns        = 128
)

// identifierAffixes are combined with vocabulary tokens in both orders.
var identifierAffixes = []string{"id", "code", "number", "num"}

var headerTokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// Shape candidates keyed by the separator seen in positive headers.
var headerShapes = []struct {
	separator string
	pattern   string
}{
	{"_", `(?i)^[a-z0-9]+(?:_[a-z0-9]+)+$`},
	{"-", `(?i)^[a-z0-9]+(?:-[a-z0-9]+)+$`},
	{" ", `(?i)^[a-z0-9]+(?: [a-z0-9]+)+$`},
}

// HeaderPatternLearner learns regexes that recognize column names.
type HeaderPatternLearner interface {
	// Learn returns scored candidates, highest confidence first. Negative
	// guards carry models.NegativeGuardConfidence.
	Learn(positives, negatives []string) []models.HeaderPatternCandidate
}

type headerPatternLearner struct {
	cache  *patterns.Cache
	logger *zap.Logger
}

// NewHeaderPatternLearner creates a HeaderPatternLearner.
func NewHeaderPatternLearner(cache *patterns.Cache, logger *zap.Logger) HeaderPatternLearner {
	return &headerPatternLearner{
		cache:  cache,
		logger: logger.Named("header-learner"),
	}
}

var _ HeaderPatternLearner = (*headerPatternLearner)(nil)

func (l *headerPatternLearner) Learn(positives, negatives []string) []models.HeaderPatternCandidate {
	pos := normalizeHeaders(positives)
	if len(pos) == 0 {
		return []models.HeaderPatternCandidate{}
	}
	neg := normalizeHeaders(negatives)

	vocab := headerVocabulary(pos)
	ranked := newCandidateSet()

	for _, pattern := range generateHeaderCandidates(pos, vocab) {
		confidence, ok := l.score(pattern, pos, neg)
		if !ok {
			continue
		}
		ranked.keep(pattern, confidence)
	}

	for _, token := range topNegativeTokens(neg, pos, maxNegativeGuards) {
		ranked.keep(tokenBoundaryPattern(token), models.NegativeGuardConfidence)
	}

	out := ranked.sorted()
	if len(out) > maxHeaderPatterns {
		out = out[:maxHeaderPatterns]
	}
	return out
}

// score returns the precision of pattern over the example headers. It
// reports false when the candidate carries no usable evidence.
func (l *headerPatternLearner) score(pattern string, pos, neg []string) (int, bool) {
	re, err := l.cache.Compile(pattern)
	if err != nil {
		l.logger.Debug("Skipping uncompilable header candidate",
			zap.String("pattern", logging.TruncatePattern(pattern)),
			zap.Error(err))
		return 0, false
	}

	tp := countMatches(re, pos)
	fp := countMatches(re, neg)
	if tp == 0 || tp+fp == 0 {
		return 0, false
	}

	confidence := int(math.Round(100 * float64(tp) / float64(tp+fp)))
	if confidence < minHeaderConfidence {
		return 0, false
	}
	return confidence, true
}

func countMatches(re *regexp.Regexp, headers []string) int {
	n := 0
	for _, h := range headers {
		if re.MatchString(h) {
			n++
		}
	}
	return n
}

// generateHeaderCandidates returns candidate patterns in a stable order.
func generateHeaderCandidates(pos, vocab []string) []string {
	var out []string
	for _, token := range vocab {
		out = append(out, tokenBoundaryPattern(token))
		if forms := numberForms(token); len(forms) > 1 {
			out = append(out, tokenBoundaryPattern(forms...))
		}
		quoted := regexp.QuoteMeta(token)
		for _, affix := range identifierAffixes {
			out = append(out,
				`(?i)^`+quoted+`[ _-]?`+affix+`$`,
				`(?i)^`+affix+`[ _-]?`+quoted+`$`,
			)
		}
	}

	for _, shape := range headerShapes {
		if slices.ContainsFunc(pos, func(h string) bool { return strings.Contains(h, shape.separator) }) {
			out = append(out, shape.pattern)
		}
	}
	return out
}

// tokenBoundaryPattern matches any of the tokens as a whole header token.
// Underscores count as separators, matching how headers are tokenized.
func tokenBoundaryPattern(tokens ...string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	body := quoted[0]
	if len(quoted) > 1 {
		body = `(?:` + strings.Join(quoted, "|") + `)`
	}
	return `(?i)(?:^|[^a-z0-9])` + body + `(?:[^a-z0-9]|$)`
}

// numberForms returns the token with its singular and plural forms, so
// "accounts" also yields a candidate for "account".
func numberForms(token string) []string {
	forms := []string{token}
	singular := strings.ToLower(inflection.Singular(token))
	for _, f := range []string{singular, strings.ToLower(inflection.Plural(singular))} {
		if len(f) >= minVocabularyTokenLength && !slices.Contains(forms, f) {
			forms = append(forms, f)
		}
	}
	return forms
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

func tokenizeHeader(h string) []string {
	var tokens []string
	for _, t := range headerTokenSplitter.Split(h, -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// headerVocabulary returns tokens of length >= 2 in first-seen order.
func headerVocabulary(headers []string) []string {
	var vocab []string
	seen := make(map[string]struct{})
	for _, h := range headers {
		for _, t := range tokenizeHeader(h) {
			if len(t) < minVocabularyTokenLength {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			vocab = append(vocab, t)
		}
	}
	return vocab
}

// topNegativeTokens returns the most frequent tokens that occur in negative
// headers but never in positive ones. Ties keep first-seen order.
func topNegativeTokens(neg, pos []string, limit int) []string {
	positiveTokens := make(map[string]struct{})
	for _, h := range pos {
		for _, t := range tokenizeHeader(h) {
			positiveTokens[t] = struct{}{}
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, h := range neg {
		for _, t := range tokenizeHeader(h) {
			if len(t) < minVocabularyTokenLength {
				continue
			}
			if _, shared := positiveTokens[t]; shared {
				continue
			}
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// candidateSet de-duplicates patterns, keeping the highest confidence.
type candidateSet struct {
	confidence map[string]int
	order      []string
}

func newCandidateSet() *candidateSet {
	return &candidateSet{confidence: make(map[string]int)}
}

func (s *candidateSet) keep(pattern string, confidence int) {
	current, ok := s.confidence[pattern]
	if !ok {
		s.order = append(s.order, pattern)
	}
	if !ok || confidence > current {
		s.confidence[pattern] = confidence
	}
}

func (s *candidateSet) sorted() []models.HeaderPatternCandidate {
	out := make([]models.HeaderPatternCandidate, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, models.HeaderPatternCandidate{Pattern: p, Confidence: s.confidence[p]})
	}
	slices.SortStableFunc(out, func(a, b models.HeaderPatternCandidate) int {
		return b.Confidence - a.Confidence
	})
	return out
}
