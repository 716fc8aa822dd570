package services

import (
	"regexp"
	"slices"

	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/logging"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/normalize"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
)

// CoverageDiagnostics measures how well a candidate rule explains a sample.
type CoverageDiagnostics interface {
	Compute(values, canonicalMembers, regexes []string, topK int, reason models.DecisionReason) models.ColumnDiagnostics
}

type coverageDiagnostics struct {
	cache  *patterns.Cache
	logger *zap.Logger
}

// NewCoverageDiagnostics creates a CoverageDiagnostics analyzer.
func NewCoverageDiagnostics(cache *patterns.Cache, logger *zap.Logger) CoverageDiagnostics {
	return &coverageDiagnostics{
		cache:  cache,
		logger: logger.Named("diagnostics"),
	}
}

var _ CoverageDiagnostics = (*coverageDiagnostics)(nil)

// Compute returns fresh diagnostics. Values are normalized and empties
// dropped before counting. Regexes that fail to compile are ignored.
func (d *coverageDiagnostics) Compute(
	values, canonicalMembers, regexes []string,
	topK int,
	reason models.DecisionReason,
) models.ColumnDiagnostics {
	diag := models.ColumnDiagnostics{
		UnmatchedTop:            []string{},
		UnmatchedFrequencies:    map[string]int{},
		SuggestedAdditions:      []string{},
		SuggestedHeaderPatterns: []string{},
		DecisionReason:          reason,
	}

	sample := normalizedNonEmpty(values)
	diag.NonNullCount = len(sample)
	diag.SampleCount = len(sample)
	if len(sample) == 0 {
		return diag
	}

	members := normalize.Set(canonicalMembers)
	full := d.compileAll(regexes)

	var finiteHits, regexHits int
	var order []string
	for _, v := range sample {
		_, inList := members[v]
		if inList {
			finiteHits++
		}
		regexHit := patterns.FullMatchAny(full, v)
		if regexHit {
			regexHits++
		}
		if inList || regexHit {
			continue
		}
		if diag.UnmatchedFrequencies[v] == 0 {
			order = append(order, v)
		}
		diag.UnmatchedFrequencies[v]++
	}

	n := float64(len(sample))
	diag.FiniteCoverage = float64(finiteHits) / n
	diag.RegexCoverage = float64(regexHits) / n

	slices.SortStableFunc(order, func(a, b string) int {
		return diag.UnmatchedFrequencies[b] - diag.UnmatchedFrequencies[a]
	})
	if limit := max(1, topK); len(order) > limit {
		order = order[:limit]
	}
	diag.UnmatchedTop = order
	diag.SuggestedAdditions = slices.Clone(order)

	return diag
}

func (d *coverageDiagnostics) compileAll(regexes []string) []*regexp.Regexp {
	full := make([]*regexp.Regexp, 0, len(regexes))
	for _, p := range regexes {
		if p == "" {
			continue
		}
		re, err := d.cache.CompileFull(p)
		if err != nil {
			d.logger.Warn("Ignoring invalid regex in diagnostics",
				zap.String("pattern", logging.TruncatePattern(p)),
				zap.Error(err))
			continue
		}
		full = append(full, re)
	}
	return full
}
