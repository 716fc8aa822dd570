// Package sampler reads raw column values for coverage diagnostics from
// CSV files and relational databases.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// DefaultLimit caps the number of values a sampler returns when the
// caller passes a non-positive limit.
const DefaultLimit = 1000

// ErrUnsafeIdentifier is returned for identifiers that look like SQL
// injection attempts even after quoting.
var ErrUnsafeIdentifier = errors.New("unsafe identifier")

// ColumnRef names a database column. Schema may be empty.
type ColumnRef struct {
	Schema string
	Table  string
	Column string
}

func (r ColumnRef) String() string {
	if r.Schema == "" {
		return r.Table + "." + r.Column
	}
	return r.Schema + "." + r.Table + "." + r.Column
}

// Sampler fetches up to limit non-null values of a column as text.
type Sampler interface {
	Sample(ctx context.Context, ref ColumnRef, limit int) ([]string, error)
	Close() error
}

// CheckIdentifiers rejects column references whose parts are empty,
// contain NUL or control characters, or are flagged by libinjection.
// Identifiers are always quoted too; this catches obvious abuse early
// with a clear error.
func CheckIdentifiers(ref ColumnRef) error {
	parts := []struct {
		name, value string
		required    bool
	}{
		{"schema", ref.Schema, false},
		{"table", ref.Table, true},
		{"column", ref.Column, true},
	}
	for _, p := range parts {
		if p.value == "" {
			if p.required {
				return fmt.Errorf("%w: %s name is required", ErrUnsafeIdentifier, p.name)
			}
			continue
		}
		if strings.ContainsFunc(p.value, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
			return fmt.Errorf("%w: %s name contains control characters", ErrUnsafeIdentifier, p.name)
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(p.value); isSQLi {
			return fmt.Errorf("%w: %s name %q matches injection pattern %s", ErrUnsafeIdentifier, p.name, p.value, fingerprint)
		}
	}
	return nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
