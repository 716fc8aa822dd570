package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"blank", "   \t\n", ""},
		{"trims and upper-cases", "  us ", "US"},
		{"collapses whitespace", "new \t  york\ncity", "NEW YORK CITY"},
		{"fullwidth letters fold", "ＡＢＣ", "ABC"},
		{"ligature folds", "ﬁle", "FILE"},
		{"sharp s uses full mapping", "straße", "STRASSE"},
		{"non-breaking space collapses", "a  b", "A B"},
		{"combining accent composes", "é", "É"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Value(tt.input))
		})
	}
}

func TestValue_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "us", " Us ", "ＡＢＣ", "ﬁle", "straße", "İstanbul", "ǅemal",
		"é", "a b", "x  y\tz", "ΐ", "ﬃ", "12 345", "ßẞ",
	}
	for _, in := range inputs {
		once := Value(in)
		assert.Equal(t, once, Value(once), "input %q", in)
	}
}

func TestCanonicalList(t *testing.T) {
	t.Run("folds case and whitespace variants", func(t *testing.T) {
		assert.Equal(t, []string{"US"}, CanonicalList([]string{"US", "us", " Us "}))
	})

	t.Run("sorted without duplicates", func(t *testing.T) {
		got := CanonicalList([]string{"green", "RED", "blue", "red", "", "  "})
		assert.Equal(t, []string{"BLUE", "GREEN", "RED"}, got)
	})

	t.Run("fixed point", func(t *testing.T) {
		once := CanonicalList([]string{"b", "a", "A", " c"})
		assert.Equal(t, once, CanonicalList(once))
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Empty(t, CanonicalList(nil))
	})
}

func TestFilterInvalid(t *testing.T) {
	got := FilterInvalid(
		[]string{"red", "Green", " blue", "RED", "", "purple"},
		[]string{"PURPLE ", "orange"},
	)
	assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, got)
}

func TestFilterInvalid_AllNegative(t *testing.T) {
	assert.Empty(t, FilterInvalid([]string{"a", "b"}, []string{"A", "B"}))
}

func TestUnion_Idempotent(t *testing.T) {
	members := []string{"BLUE", "RED"}
	extra := []string{"green", "RED"}

	once := Union(members, extra)
	assert.Equal(t, []string{"BLUE", "GREEN", "RED"}, once)
	assert.Equal(t, once, Union(once, extra))
}
