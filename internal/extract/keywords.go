package extract

import (
	"iter"
	"slices"
	"strings"
)

const (
	// MinKeywordLength is the shortest token kept (tokens of 3 or fewer are dropped)
	MinKeywordLength = 4
	// MaxKeywords caps how many keywords are produced
	MaxKeywords = 10
)

// Keywords lazily yields normalized keywords from claim text: lower-cased,
// split on non-word characters, short tokens dropped, first MaxKeywords kept.
// Word characters are ASCII letters, digits and underscore.
func Keywords(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		lower := strings.ToLower(text)
		emitted := 0
		start := -1

		flush := func(end int) bool {
			if start < 0 {
				return true
			}
			token := lower[start:end]
			start = -1
			if len(token) < MinKeywordLength {
				return true
			}
			emitted++
			return yield(token)
		}

		for i := 0; i < len(lower); i++ {
			if isWordByte(lower[i]) {
				if start < 0 {
					start = i
				}
				continue
			}
			if !flush(i) || emitted >= MaxKeywords {
				return
			}
		}
		if emitted < MaxKeywords {
			flush(len(lower))
		}
	}
}

// ExtractKeywords collects Keywords into a slice. Empty input yields an empty slice.
func ExtractKeywords(text string) []string {
	keywords := slices.Collect(Keywords(text))
	if keywords == nil {
		return []string{}
	}
	return keywords
}

// isWordByte matches the \w class: [A-Za-z0-9_]
func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
