package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/apperrors"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/metrics"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/patterns"
	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/plugin"
)

func newTestCompiler(m *metrics.Metrics) PluginCompiler {
	return NewPluginCompiler(patterns.MustNewCache(0), m, zap.NewNop())
}

// scriptedRegistrar fails or panics for configured semantic types.
type scriptedRegistrar struct {
	fail      map[string]error
	panicOn   map[string]bool
	submitted []string
}

func (r *scriptedRegistrar) Register(ctx context.Context, p plugin.Plugin) error {
	r.submitted = append(r.submitted, p.SemanticType())
	if r.panicOn[p.SemanticType()] {
		panic("engine exploded")
	}
	return r.fail[p.SemanticType()]
}

func TestPluginCompiler_Prepare_Priority(t *testing.T) {
	tests := []struct {
		name       string
		priority   int
		builtIn    bool
		want       int
		wantClamps float64
	}{
		{"custom below minimum is clamped", 880, false, 2000, 1},
		{"unset gets the default", 0, false, 2500, 0},
		{"custom above minimum is kept", 2300, false, 2300, 0},
		{"built-in keeps its offset priority", 2050, true, 2050, 0},
		{"built-in below minimum is not clamped", 150, true, 150, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			c := newTestCompiler(m)

			rule := colorRule()
			rule.Priority = tt.priority
			rule.IsBuiltIn = tt.builtIn

			got, err := c.Prepare(rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Priority)
			assert.Equal(t, tt.wantClamps, testutil.ToFloat64(m.PriorityClamps))
			assert.Equal(t, tt.priority, rule.Priority, "input must not be modified")
		})
	}
}

func TestPluginCompiler_Prepare_FiniteList(t *testing.T) {
	c := newTestCompiler(nil)

	rule := &models.SemanticTypeRule{
		Name:     " CUSTOM.COLOR ",
		Kind:     models.RuleKindFiniteList,
		BaseType: "long",
		FiniteList: &models.FiniteListPayload{
			Members:     []string{"red", "Red", " green ", "", "straße"},
			ContentType: models.ContentTypeList,
		},
	}

	got, err := c.Prepare(rule)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM.COLOR", got.Name)
	assert.Equal(t, []string{"RED", "GREEN", "STRASSE"}, got.FiniteList.Members)
	assert.Equal(t, models.ContentTypeInline, got.FiniteList.ContentType)
	assert.Equal(t, models.DefaultBackoutPattern, got.BackoutPattern)
	assert.Equal(t, "LONG", got.BaseType)
	assert.Equal(t, models.AnyLocale, got.LocaleTag)
	assert.Equal(t, float64(models.DefaultThreshold), got.Threshold)
}

func TestPluginCompiler_Prepare_KeepsBackout(t *testing.T) {
	c := newTestCompiler(nil)

	rule := colorRule()
	rule.BackoutPattern = "[A-Z]+"
	rule.BaseType = "integer"

	got, err := c.Prepare(rule)
	require.NoError(t, err)
	assert.Equal(t, "[A-Z]+", got.BackoutPattern)
	assert.Equal(t, models.DefaultBaseType, got.BaseType)
}

func TestPluginCompiler_Prepare_Preflight(t *testing.T) {
	c := newTestCompiler(nil)

	tests := []struct {
		name    string
		rule    *models.SemanticTypeRule
		wantErr error
		reason  string
	}{
		{"nil rule", nil, apperrors.ErrInvalidRule, "rule is required"},
		{"blank name", &models.SemanticTypeRule{Name: " ", Kind: models.RuleKindRegexSet}, apperrors.ErrInvalidRule, "name is required"},
		{"list without payload", &models.SemanticTypeRule{Name: "X", Kind: models.RuleKindFiniteList}, apperrors.ErrInvalidRule, "requires members"},
		{"list with only blanks", &models.SemanticTypeRule{
			Name:       "X",
			Kind:       models.RuleKindFiniteList,
			FiniteList: &models.FiniteListPayload{Members: []string{" ", ""}},
		}, apperrors.ErrInvalidRule, "at least one member"},
		{"unknown content type", &models.SemanticTypeRule{
			Name:       "X",
			Kind:       models.RuleKindFiniteList,
			FiniteList: &models.FiniteListPayload{Members: []string{"A"}, ContentType: "file"},
		}, apperrors.ErrInvalidRule, "unknown list content type"},
		{"regex without patterns", regexRule(), apperrors.ErrInvalidRule, "at least one pattern"},
		{"uncompilable regex", regexRule(`[A-Z`), apperrors.ErrInvalidRule, "does not compile"},
		{"unbalanced quotes", regexRule(`"[A-Z]+`), apperrors.ErrInvalidRule, "unbalanced quotes"},
		{"line break in class", regexRule("[A-Z\n]+"), apperrors.ErrInvalidRule, "line break inside a character class"},
		{"code without class", &models.SemanticTypeRule{
			Name:       "X",
			Kind:       models.RuleKindCodeBacked,
			CodeBacked: &models.CodeBackedPayload{},
		}, apperrors.ErrInvalidRule, "class reference"},
		{"unknown kind", &models.SemanticTypeRule{Name: "X", Kind: "python"}, apperrors.ErrUnsupportedKind, "unsupported rule kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Prepare(tt.rule)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestPluginCompiler_Prepare_RegexKeepsValidAlternatives(t *testing.T) {
	c := newTestCompiler(nil)

	got, err := c.Prepare(regexRule(`[A-Z]{2}`, " ", `"quoted"`))
	require.NoError(t, err)
	assert.Equal(t, []string{`[A-Z]{2}`, `"quoted"`}, got.RegexSet.Patterns)
}

func TestHasLineBreakInClass(t *testing.T) {
	assert.False(t, hasLineBreakInClass(`[A-Z]+\n`))
	assert.False(t, hasLineBreakInClass("abc\n[A-Z]"))
	assert.False(t, hasLineBreakInClass("\\[\n\\]"))
	assert.True(t, hasLineBreakInClass("[\r]"))
}

func TestPluginCompiler_Compile(t *testing.T) {
	c := newTestCompiler(nil)

	t.Run("finite list", func(t *testing.T) {
		rule := colorRule()
		rule.Priority = 880
		rule.HeaderPatterns = []models.HeaderPatternCandidate{
			{Pattern: "(?i)colou?r", Confidence: 95, Mandatory: true},
		}

		p, err := c.Compile(rule)
		require.NoError(t, err)
		list, ok := p.(*plugin.ListPlugin)
		require.True(t, ok)

		assert.Equal(t, models.RuleKindFiniteList, list.Kind())
		assert.Equal(t, 2000, list.Priority)
		assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, list.Content.Members)
		assert.Equal(t, models.ContentTypeInline, list.Content.Type)
		assert.Equal(t, ".*", list.Backout)
		assert.Regexp(t, regexp.MustCompile(`^custom_\d+=3$`), list.Signature)
		require.Len(t, list.Locales, 1)
		assert.Equal(t, "*", list.Locales[0].LocaleTag)
		assert.Equal(t, []plugin.HeaderRegExp{{RegExp: "(?i)colou?r", Confidence: 95, Mandatory: true}}, list.Locales[0].HeaderRegExps)
	})

	t.Run("signature is stable", func(t *testing.T) {
		a, err := c.Compile(colorRule())
		require.NoError(t, err)
		b, err := c.Compile(colorRule())
		require.NoError(t, err)
		assert.Equal(t, a.(*plugin.ListPlugin).Signature, b.(*plugin.ListPlugin).Signature)
	})

	t.Run("regex set", func(t *testing.T) {
		rule := regexRule(`[A-Z]{2}`, `[A-Z]{3}`)
		rule.Threshold = 95.6

		p, err := c.Compile(rule)
		require.NoError(t, err)
		re, ok := p.(*plugin.RegexPlugin)
		require.True(t, ok)

		assert.Equal(t, 96, re.Threshold)
		require.Len(t, re.Locales, 1)
		assert.Equal(t, []plugin.MatchEntry{
			{RegExpReturned: `[A-Z]{2}`, IsRegExpComplete: true},
			{RegExpReturned: `[A-Z]{3}`, IsRegExpComplete: true},
		}, re.Locales[0].MatchEntries)
	})

	t.Run("code backed", func(t *testing.T) {
		rule := &models.SemanticTypeRule{
			Name:       "CUSTOM.LUHN",
			Kind:       models.RuleKindCodeBacked,
			CodeBacked: &models.CodeBackedPayload{ClassName: "com.example.Luhn", Signature: "abc"},
		}

		p, err := c.Compile(rule)
		require.NoError(t, err)
		java, ok := p.(*plugin.JavaPlugin)
		require.True(t, ok)
		assert.Equal(t, "com.example.Luhn", java.Clazz)
		assert.Equal(t, "abc", java.Signature)
	})
}

func TestPluginCompiler_RegisterAll_Isolation(t *testing.T) {
	m := metrics.New()
	c := newTestCompiler(m)
	registrar := plugin.NewMemoryRegistrar()

	broken := regexRule(`([A-Z]`)
	broken.Name = "CUSTOM.BROKEN"
	rules := []*models.SemanticTypeRule{colorRule(), broken, regexRule(`[A-Z]{2}`)}

	report := c.RegisterAll(context.Background(), registrar, rules)

	assert.Equal(t, 2, report.Registered)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, models.RegistrationSkipped, report.Outcomes[1].Status)
	assert.Equal(t, "CUSTOM.BROKEN", report.Outcomes[1].SemanticType)
	assert.NotEmpty(t, report.Outcomes[1].Reason)

	plugins := registrar.Plugins()
	require.Len(t, plugins, 2)
	assert.Equal(t, "CUSTOM.COLOR", plugins[0].SemanticType())
	assert.Equal(t, "CUSTOM.CODE", plugins[1].SemanticType())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Registrations.WithLabelValues(models.RegistrationRegistered)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Registrations.WithLabelValues(models.RegistrationSkipped)))
}

func TestPluginCompiler_RegisterAll_EngineFailures(t *testing.T) {
	c := newTestCompiler(nil)

	a := regexRule(`[A-Z]{2}`)
	a.Name = "CUSTOM.A"
	b := regexRule(`[A-Z]{2}`)
	b.Name = "CUSTOM.B"
	d := regexRule(`[A-Z]{2}`)
	d.Name = "CUSTOM.D"

	registrar := &scriptedRegistrar{
		fail:    map[string]error{"CUSTOM.A": errors.New("automaton translation failed")},
		panicOn: map[string]bool{"CUSTOM.B": true},
	}

	report := c.RegisterAll(context.Background(), registrar, []*models.SemanticTypeRule{a, b, d})

	assert.Equal(t, []string{"CUSTOM.A", "CUSTOM.B", "CUSTOM.D"}, registrar.submitted)
	assert.Equal(t, 1, report.Registered)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, "automaton translation failed", report.Outcomes[0].Reason)
	assert.Contains(t, report.Outcomes[1].Reason, "registrar panic")
	assert.Equal(t, models.RegistrationRegistered, report.Outcomes[2].Status)
}

func TestPluginCompiler_RegisterAll_CanceledContext(t *testing.T) {
	c := newTestCompiler(nil)
	registrar := &scriptedRegistrar{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := c.RegisterAll(ctx, registrar, []*models.SemanticTypeRule{colorRule(), regexRule(`\d+`)})

	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, registrar.submitted)
}

func TestPluginCompiler_RegisterAll_Empty(t *testing.T) {
	c := newTestCompiler(nil)

	report := c.RegisterAll(context.Background(), plugin.NewMemoryRegistrar(), nil)

	assert.Zero(t, report.Registered+report.Skipped+report.Failed)
	assert.NotNil(t, report.Outcomes)
}
