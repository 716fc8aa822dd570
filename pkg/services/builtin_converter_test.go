package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

const builtInPlugins = `[
  {
    "semanticType": "COLOR.TEXT_EN",
    "description": "Color names",
    "pluginType": "list",
    "threshold": 95,
    "priority": 100,
    "validLocales": [{"localeTag": "en", "headerRegExps": [{"regExp": "(?i)colou?r", "confidence": 90}]}],
    "content": {"type": "inline", "members": ["RED", "GREEN"]}
  },
  {
    "semanticType": "COUNTRY.ISO-3166-2",
    "pluginType": "list",
    "baseType": "STRING",
    "priority": 150,
    "validLocales": [{"localeTag": "*"}],
    "content": {"type": "resource", "reference": "/reference/countries.csv"}
  },
  {
    "semanticType": "POSTAL_CODE.ZIP5_US",
    "pluginType": "regex",
    "threshold": 98,
    "priority": 200,
    "validLocales": [
      {"localeTag": "de", "matchEntries": [{"regExpReturned": "\\d{5}-DE"}]},
      {"localeTag": "en-US,en-CA", "matchEntries": [{"regExpReturned": "\\d{5}"}, {"regExpReturned": ""}]}
    ]
  },
  {
    "semanticType": "CHECKDIGIT.LUHN",
    "pluginType": "java",
    "clazz": "com.cobber.fta.plugins.LogicalTypeLuhn",
    "signature": "luhn-sig",
    "priority": 50
  },
  {
    "semanticType": "POSTAL_CODE.PLZ_DE",
    "pluginType": "regex",
    "validLocales": [{"localeTag": "de"}]
  },
  {
    "semanticType": "MYSTERY.TYPE",
    "pluginType": "python",
    "validLocales": [{"localeTag": "*"}]
  }
]`

func TestBuiltInConverter_Convert(t *testing.T) {
	conv := NewBuiltInConverter(zap.NewNop())

	rules, err := conv.Convert(strings.NewReader(builtInPlugins))
	require.NoError(t, err)
	require.Len(t, rules, 4)

	byName := make(map[string]*models.SemanticTypeRule)
	for _, r := range rules {
		assert.True(t, r.IsBuiltIn, r.Name)
		assert.Zero(t, r.CreatedAt, r.Name)
		byName[r.Name] = r
	}
	assert.NotContains(t, byName, "POSTAL_CODE.PLZ_DE")
	assert.NotContains(t, byName, "MYSTERY.TYPE")

	color := byName["COLOR.TEXT_EN"]
	require.NotNil(t, color)
	assert.Equal(t, models.RuleKindFiniteList, color.Kind)
	assert.Equal(t, 2100, color.Priority)
	assert.Equal(t, float64(95), color.Threshold)
	assert.Equal(t, models.DefaultBaseType, color.BaseType)
	assert.Equal(t, "en", color.LocaleTag)
	assert.Equal(t, ".*", color.BackoutPattern)
	assert.Equal(t, []string{"RED", "GREEN"}, color.FiniteList.Members)
	assert.Equal(t, models.ContentTypeInline, color.FiniteList.ContentType)
	assert.Equal(t, []models.HeaderPatternCandidate{{Pattern: "(?i)colou?r", Confidence: 90}}, color.HeaderPatterns)

	country := byName["COUNTRY.ISO-3166-2"]
	require.NotNil(t, country)
	assert.Equal(t, models.ContentTypeResource, country.FiniteList.ContentType)
	assert.Equal(t, "/reference/countries.csv", country.FiniteList.Reference)
	assert.Empty(t, country.BackoutPattern)
	assert.Equal(t, 2150, country.Priority)

	zip := byName["POSTAL_CODE.ZIP5_US"]
	require.NotNil(t, zip)
	assert.Equal(t, models.RuleKindRegexSet, zip.Kind)
	assert.Equal(t, []string{`\d{5}`}, zip.RegexSet.Patterns)
	assert.Equal(t, "en-US,en-CA", zip.LocaleTag)

	luhn := byName["CHECKDIGIT.LUHN"]
	require.NotNil(t, luhn)
	assert.Equal(t, models.RuleKindCodeBacked, luhn.Kind)
	assert.Equal(t, "com.cobber.fta.plugins.LogicalTypeLuhn", luhn.CodeBacked.ClassName)
	assert.Equal(t, "luhn-sig", luhn.CodeBacked.Signature)
	assert.Equal(t, 2050, luhn.Priority)
	assert.Equal(t, models.AnyLocale, luhn.LocaleTag)
}

func TestBuiltInConverter_ConvertedRulesCompile(t *testing.T) {
	conv := NewBuiltInConverter(zap.NewNop())
	compiler := newTestCompiler(nil)

	rules, err := conv.Convert(strings.NewReader(builtInPlugins))
	require.NoError(t, err)

	for _, r := range rules {
		prepared, err := compiler.Prepare(r)
		require.NoError(t, err, r.Name)
		assert.Equal(t, r.Priority, prepared.Priority, "built-in priority must survive preparation")
	}
}

func TestBuiltInConverter_Malformed(t *testing.T) {
	conv := NewBuiltInConverter(zap.NewNop())

	_, err := conv.Convert(strings.NewReader(`{"semanticType": "X"}`))
	assert.Error(t, err)
}

func TestHasCustomPatterns_AgainstBuiltIn(t *testing.T) {
	conv := NewBuiltInConverter(zap.NewNop())
	rules, err := conv.Convert(strings.NewReader(builtInPlugins))
	require.NoError(t, err)

	var zip *models.SemanticTypeRule
	for _, r := range rules {
		if r.Name == "POSTAL_CODE.ZIP5_US" {
			zip = r
		}
	}
	require.NotNil(t, zip)

	same := zip.Clone()
	same.IsBuiltIn = false
	assert.False(t, models.HasCustomPatterns(same, zip))

	changed := zip.Clone()
	changed.RegexSet.Patterns = []string{`\d{5}(-\d{4})?`}
	assert.True(t, models.HasCustomPatterns(changed, zip))
}
