// Package normalize canonicalizes raw cell values and builds the sorted,
// de-duplicated member sets used by finite-list rules.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Value returns the canonical form of s: NFKC, trimmed, internal whitespace
// runs collapsed to one space, upper-cased with the root locale mapping.
// Value is idempotent and Value("") == "".
func Value(s string) string {
	if s == "" {
		return ""
	}
	s = collapse(norm.NFKC.String(s))
	// Upper-casing can emit decomposed sequences, so compose again.
	s = norm.NFKC.String(Upper(s))
	return collapse(s)
}

// Upper applies the locale-invariant full upper-case mapping (ß -> SS).
// A Caser carries state, so each call gets its own.
func Upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
