package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ahluwalij/precisely-milestone2-nl2fta-prototype-sub003/pkg/models"
)

// RawDefinition is a plugin definition as read from the engine's bundled
// plugin file. Only the fields needed for conversion are decoded.
type RawDefinition struct {
	SemanticType  string                 `json:"semanticType"`
	Description   string                 `json:"description"`
	PluginType    string                 `json:"pluginType"`
	Threshold     int                    `json:"threshold"`
	BaseType      string                 `json:"baseType"`
	Priority      int                    `json:"priority"`
	MinSamples    int                    `json:"minSamples"`
	ValidLocales  []Locale               `json:"validLocales"`
	Documentation []models.Documentation `json:"documentation"`
	Content       *Content               `json:"content"`
	Backout       string                 `json:"backout"`
	Clazz         string                 `json:"clazz"`
	Signature     string                 `json:"signature"`
	InvalidList   []string               `json:"invalidList"`
	IgnoreList    []string               `json:"ignoreList"`
}

// HasEnglishLocale reports whether any locale entry applies to "*" or an
// English locale. Locale tags may be comma-separated. A definition without
// locales applies everywhere.
func (d *RawDefinition) HasEnglishLocale() bool {
	if len(d.ValidLocales) == 0 {
		return true
	}
	for _, l := range d.ValidLocales {
		for _, tag := range strings.Split(l.LocaleTag, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "*" || strings.HasPrefix(tag, "en") {
				return true
			}
		}
	}
	return false
}

// ReadDefinitions decodes a JSON array of plugin definitions.
func ReadDefinitions(r io.Reader) ([]RawDefinition, error) {
	var defs []RawDefinition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode plugin definitions: %w", err)
	}
	return defs, nil
}
