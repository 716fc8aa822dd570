package services

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
)

func newTestLearner() HeaderPatternLearner {
	return NewHeaderPatternLearner(patterns.MustNewCache(0), zap.NewNop())
}

func TestHeaderPatternLearner_AccountHeaders(t *testing.T) {
	learner := newTestLearner()

	got := learner.Learn(
		[]string{"account_id", "acct_id", "account_number"},
		[]string{"address", "amount"},
	)
	require.NotEmpty(t, got)

	var accountPattern *models.HeaderPatternCandidate
	for i := range got {
		c := got[i]
		if c.IsNegativeGuard() {
			continue
		}
		re := regexp.MustCompile(c.Pattern)
		if re.MatchString("account_id") && !re.MatchString("address") && !re.MatchString("amount") {
			accountPattern = &got[i]
			break
		}
	}
	require.NotNil(t, accountPattern, "expected a pattern for the account token")
	assert.GreaterOrEqual(t, accountPattern.Confidence, 60)
}

func TestHeaderPatternLearner_ConfidenceBounds(t *testing.T) {
	learner := newTestLearner()

	got := learner.Learn(
		[]string{"Customer Name", "customer-name", "cust_name", "NAME"},
		[]string{"name_suffix", "file name", "username", "company"},
	)
	require.NotEmpty(t, got)

	for _, c := range got {
		if c.IsNegativeGuard() {
			assert.Equal(t, models.NegativeGuardConfidence, c.Confidence)
			continue
		}
		assert.GreaterOrEqual(t, c.Confidence, 60, c.Pattern)
		assert.LessOrEqual(t, c.Confidence, 100, c.Pattern)
	}
}

func TestHeaderPatternLearner_SortedAndUnique(t *testing.T) {
	learner := newTestLearner()

	got := learner.Learn(
		[]string{"country_code", "country", "ctry_code", "countries"},
		[]string{"county", "code_page", "country_of_birth_note"},
	)

	seen := make(map[string]bool)
	for i, c := range got {
		assert.False(t, seen[c.Pattern], "duplicate pattern %s", c.Pattern)
		seen[c.Pattern] = true
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Confidence, c.Confidence)
		}
	}
}

func TestHeaderPatternLearner_NegativeGuards(t *testing.T) {
	learner := newTestLearner()

	got := learner.Learn(
		[]string{"state", "state_code"},
		[]string{"statement", "status", "status_flag", "status_date", "estate"},
	)

	var guards []string
	for _, c := range got {
		if c.IsNegativeGuard() {
			guards = append(guards, c.Pattern)
		}
	}
	require.NotEmpty(t, guards)
	assert.LessOrEqual(t, len(guards), 3)
	// "status" is the most frequent negative-only token.
	assert.Equal(t, tokenBoundaryPattern("status"), guards[0])
	for _, g := range guards {
		re := regexp.MustCompile(g)
		assert.False(t, re.MatchString("state"), g)
		assert.False(t, re.MatchString("state_code"), g)
	}
}

func TestHeaderPatternLearner_SingularForm(t *testing.T) {
	learner := newTestLearner()

	got := learner.Learn([]string{"accounts", "accounts_total"}, nil)

	found := false
	for _, c := range got {
		re := regexp.MustCompile(c.Pattern)
		if re.MatchString("account") && re.MatchString("accounts") {
			found = true
			break
		}
	}
	assert.True(t, found, "expected a candidate covering singular and plural forms")
}

func TestHeaderPatternLearner_EmptyPositives(t *testing.T) {
	learner := newTestLearner()

	tests := []struct {
		name      string
		positives []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"blank", []string{"", "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := learner.Learn(tt.positives, []string{"amount"})
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestHeaderPatternLearner_CapsOutput(t *testing.T) {
	learner := newTestLearner()

	positives := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		positives = append(positives, fmt.Sprintf("tok%02d_col%02d", i, i))
	}

	got := learner.Learn(positives, nil)
	assert.Len(t, got, 128)
}

func TestTokenBoundaryPattern(t *testing.T) {
	re := regexp.MustCompile(tokenBoundaryPattern("id"))

	tests := []struct {
		header string
		want   bool
	}{
		{"id", true},
		{"account_id", true},
		{"ID number", true},
		{"identity", false},
		{"paid", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, re.MatchString(tt.header))
		})
	}
}
