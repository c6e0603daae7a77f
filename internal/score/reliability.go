package score

import "strings"

// DefaultReliableFragments name reliable outlets. Matching is a
// case-insensitive substring test, so "ap" also matches "apple".
var DefaultReliableFragments = []string{
	"reuters", "ap", "bbc", "npr", "pbs", "associated press",
	"government", "official", "verified",
}

// SourceReliability returns the share of sources that mention an allowlisted
// outlet. No sources scores exactly 0.
func (s *Scorer) SourceReliability(sources []string) float64 {
	if len(sources) == 0 {
		return 0
	}
	return float64(s.reliableCount(sources)) / float64(len(sources))
}

func (s *Scorer) reliableCount(sources []string) int {
	count := 0
	for _, source := range sources {
		if s.isReliable(source) {
			count++
		}
	}
	return count
}

func (s *Scorer) isReliable(source string) bool {
	lower := strings.ToLower(source)
	for _, fragment := range s.reliable {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
