package manifest

import (
	"cmp"
	"slices"
	"strings"
)

// DefaultGlobalPrefix marks world-wide records, which sort first.
const DefaultGlobalPrefix = "GLB-"

// Sort returns a copy of records ordered by name, ascending and
// case-sensitive, with names starting with globalPrefix ahead of all others.
// Field values are never modified.
func Sort(records []Record, globalPrefix string) []Record {
	out := slices.Clone(records)
	rank := func(r Record) int {
		if globalPrefix != "" && strings.HasPrefix(r.Name, globalPrefix) {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
