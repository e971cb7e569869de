package sanitizer

import (
	"sort"
	"strings"
)

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// NormalizeIDSet trims, de-duplicates and sorts ids so two sets with the same
// members compare equal element by element.
func NormalizeIDSet(ids []string) []string {
	result := NormalizeStringSlice(ids, strings.TrimSpace)
	sort.Strings(result)
	return result
}

func EqualIDSets(a, b []string) bool {
	a, b = NormalizeIDSet(a), NormalizeIDSet(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
