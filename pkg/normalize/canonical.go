package normalize

import (
	"slices"
)

// CanonicalList returns the sorted set of normalized, non-empty values.
func CanonicalList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Value(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// FilterInvalid normalizes values and drops empties and anything present in
// the normalized negative set. The result is de-duplicated in first-seen
// order; callers sort if they need to.
func FilterInvalid(values, negatives []string) []string {
	negSet := Set(negatives)
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Value(v)
		if n == "" {
			continue
		}
		if _, bad := negSet[n]; bad {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Set returns the normalized non-empty values as a lookup set.
func Set(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := Value(v); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Union merges extra into the canonical list members and returns a new
// canonical list. Union(Union(m, x), x) == Union(m, x).
func Union(members, extra []string) []string {
	all := make([]string, 0, len(members)+len(extra))
	all = append(all, members...)
	all = append(all, extra...)
	return CanonicalList(all)
}
