// Package strings holds small helpers for list-valued query parameters.
package strings

import "strings"

// SplitList splits raw on sep and returns the trimmed, non-empty,
// first-seen-order unique elements.
//
//	SplitList(" 3,1, 3,,2 ", ",") // []string{"3", "1", "2"}
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, sep))
}

// DedupeAndTrim drops blanks and duplicates after trimming. Order is kept.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
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
