package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeLookupKey is used for cache keys built from free-text queries so
// "Jazz  Trio" and "jazz trio" share an entry.
func NormalizeLookupKey(key string) string {
	return strings.ToLower(TrimAndNormalize(key))
}

// NormalizeMessageBody keeps line breaks and tabs, drops every other control
// character and trims surrounding whitespace.
func NormalizeMessageBody(body string) string {
	body = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, body)
	return strings.TrimSpace(body)
}
