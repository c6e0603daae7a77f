package score

import (
	"math"
	"strings"
	"unicode/utf16"
)

const (
	capsRatioThreshold   = 0.3
	exclamationThreshold = 2
	suspicionNormalizer  = 5.0
)

// DefaultSuspiciousPhrases are sensationalist phrases common in misinformation
var DefaultSuspiciousPhrases = []string{
	"breaking", "urgent", "confirmed", "exclusive", "leaked", "secret",
	"government cover-up", "they don't want you to know", "shocking truth",
}

// suspicionHits is the raw breakdown behind a suspicion score
type suspicionHits struct {
	phrases      []string
	capsRatio    float64
	excessCaps   bool
	exclamations int
	excessBangs  bool
}

func (h suspicionHits) count() int {
	n := len(h.phrases)
	if h.excessCaps {
		n++
	}
	if h.excessBangs {
		n++
	}
	return n
}

// Suspicion scores claim text in [0,1]; higher means more misinformation-flavored
func (s *Scorer) Suspicion(claim string) float64 {
	return suspicionFromHits(s.suspicionHits(claim))
}

func (s *Scorer) suspicionHits(claim string) suspicionHits {
	var hits suspicionHits

	lower := strings.ToLower(claim)
	for _, phrase := range s.suspicious {
		if strings.Contains(lower, phrase) {
			hits.phrases = append(hits.phrases, phrase)
		}
	}

	hits.capsRatio = capsRatio(claim)
	hits.excessCaps = hits.capsRatio > capsRatioThreshold

	hits.exclamations = strings.Count(claim, "!")
	hits.excessBangs = hits.exclamations > exclamationThreshold

	return hits
}

func suspicionFromHits(h suspicionHits) float64 {
	return math.Min(float64(h.count())/suspicionNormalizer, 1)
}

// capsRatio is uppercase ASCII letters over the text's UTF-16 length, so a
// character outside the BMP counts twice; 0 for empty text
func capsRatio(text string) float64 {
	total, upper := 0, 0
	for _, r := range text {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		total += n
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}
