// Package strings holds small helpers for list-valued query parameters and
// environment settings.
package strings

import (
	"strings"
)

// Compact trims each value and drops empties and repeats, keeping the first
// occurrence's position.
func Compact(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated value such as "viewed, downloaded" and
// compacts the result. An empty input yields an empty slice.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return Compact(strings.Split(raw, ","))
}
