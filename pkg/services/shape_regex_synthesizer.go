package services

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/normalize"
)

// shapeHypotheses are tested in order; each must hold for every positive.
var shapeHypotheses = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{2}$`),
	regexp.MustCompile(`^[A-Z]{3}$`),
	regexp.MustCompile(`^[A-Z0-9]{2,6}$`),
}

// ShapeRegexSynthesizer proposes value-shape regexes from examples.
type ShapeRegexSynthesizer interface {
	// Synthesize returns the anchored shape regexes that fully match every
	// normalized positive value and no normalized negative value.
	Synthesize(positives, negatives []string) []string
}

type shapeRegexSynthesizer struct {
	logger *zap.Logger
}

// NewShapeRegexSynthesizer creates a ShapeRegexSynthesizer.
func NewShapeRegexSynthesizer(logger *zap.Logger) ShapeRegexSynthesizer {
	return &shapeRegexSynthesizer{logger: logger.Named("shape-synthesizer")}
}

var _ ShapeRegexSynthesizer = (*shapeRegexSynthesizer)(nil)

func (s *shapeRegexSynthesizer) Synthesize(positives, negatives []string) []string {
	pos := normalizedNonEmpty(positives)
	out := []string{}
	if len(pos) == 0 {
		return out
	}
	neg := normalizedNonEmpty(negatives)

	for _, h := range shapeHypotheses {
		if !allMatch(h, pos) {
			continue
		}
		if anyMatch(h, neg) {
			s.logger.Debug("Shape hypothesis also matches a negative example",
				zap.String("pattern", h.String()))
			continue
		}
		out = append(out, h.String())
	}
	return out
}

func normalizedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalize.Value(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func allMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if !re.MatchString(v) {
			return false
		}
	}
	return true
}

func anyMatch(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}
