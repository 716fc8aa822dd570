// Package plugin models the classification engine's declarative plugin
// format. Each rule kind has its own Go type and its own serializer.
package plugin

import (
	"encoding/json"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// Plugin is one engine plugin definition: a *ListPlugin, *RegexPlugin or
// *JavaPlugin.
type Plugin interface {
	json.Marshaler
	SemanticType() string
	Kind() models.RuleKind
	isPlugin()
}

// HeaderRegExp is a header pattern inside a locale entry.
type HeaderRegExp struct {
	RegExp     string `json:"regExp"`
	Confidence int    `json:"confidence"`
	Mandatory  bool   `json:"mandatory"`
}

// MatchEntry is a value regex inside a locale entry.
type MatchEntry struct {
	RegExpReturned   string   `json:"regExpReturned"`
	RegExpsToMatch   []string `json:"regExpsToMatch,omitempty"`
	IsRegExpComplete bool     `json:"isRegExpComplete"`
}

// Locale scopes header and value patterns to locale tags ("*" for all).
type Locale struct {
	LocaleTag     string         `json:"localeTag"`
	HeaderRegExps []HeaderRegExp `json:"headerRegExps,omitempty"`
	MatchEntries  []MatchEntry   `json:"matchEntries,omitempty"`
}

// Common holds the fields shared by every variant.
type Common struct {
	Name          string
	Description   string
	Threshold     int
	BaseType      string
	Priority      int
	MinSamples    int
	Locales       []Locale
	Documentation []models.Documentation
	InvalidList   []string
	IgnoreList    []string
}

func (c *Common) SemanticType() string { return c.Name }

type commonWire struct {
	SemanticType  string                 `json:"semanticType"`
	Description   string                 `json:"description"`
	PluginType    models.RuleKind        `json:"pluginType"`
	Threshold     int                    `json:"threshold"`
	BaseType      string                 `json:"baseType"`
	Priority      int                    `json:"priority"`
	MinSamples    int                    `json:"minSamples,omitempty"`
	ValidLocales  []Locale               `json:"validLocales"`
	Documentation []models.Documentation `json:"documentation,omitempty"`
	InvalidList   []string               `json:"invalidList,omitempty"`
	IgnoreList    []string               `json:"ignoreList,omitempty"`
}

func (c *Common) wire(kind models.RuleKind) commonWire {
	locales := c.Locales
	if locales == nil {
		locales = []Locale{}
	}
	return commonWire{
		SemanticType:  c.Name,
		Description:   c.Description,
		PluginType:    kind,
		Threshold:     c.Threshold,
		BaseType:      c.BaseType,
		Priority:      c.Priority,
		MinSamples:    c.MinSamples,
		ValidLocales:  locales,
		Documentation: c.Documentation,
		InvalidList:   c.InvalidList,
		IgnoreList:    c.IgnoreList,
	}
}

// ============================================================================
// Finite lists
// ============================================================================

// Content describes where a list plugin's members come from.
type Content struct {
	Type      string   `json:"type"`
	Reference string   `json:"reference,omitempty"`
	Members   []string `json:"members,omitempty"`
}

// ListPlugin recognizes values from a finite member set.
type ListPlugin struct {
	Common
	Content   Content
	Backout   string
	Signature string
}

func (*ListPlugin) Kind() models.RuleKind { return models.RuleKindFiniteList }
func (*ListPlugin) isPlugin()             {}

func (p *ListPlugin) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		commonWire
		Content   Content `json:"content"`
		Backout   string  `json:"backout"`
		Signature string  `json:"signature,omitempty"`
	}{
		commonWire: p.wire(models.RuleKindFiniteList),
		Content:    p.Content,
		Backout:    p.Backout,
		Signature:  p.Signature,
	})
}

// ============================================================================
// Regex sets
// ============================================================================

// RegexPlugin recognizes values by the match entries of its locales.
type RegexPlugin struct {
	Common
}

func (*RegexPlugin) Kind() models.RuleKind { return models.RuleKindRegexSet }
func (*RegexPlugin) isPlugin()             {}

func (p *RegexPlugin) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire(models.RuleKindRegexSet))
}

// ============================================================================
// Code-backed
// ============================================================================

// JavaPlugin delegates recognition to a matcher class inside the engine.
type JavaPlugin struct {
	Common
	Clazz     string
	Signature string
}

func (*JavaPlugin) Kind() models.RuleKind { return models.RuleKindCodeBacked }
func (*JavaPlugin) isPlugin()             {}

func (p *JavaPlugin) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		commonWire
		Clazz     string `json:"clazz"`
		Signature string `json:"signature,omitempty"`
	}{
		commonWire: p.wire(models.RuleKindCodeBacked),
		Clazz:      p.Clazz,
		Signature:  p.Signature,
	})
}

var (
	_ Plugin = (*ListPlugin)(nil)
	_ Plugin = (*RegexPlugin)(nil)
	_ Plugin = (*JavaPlugin)(nil)
)
