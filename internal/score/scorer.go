package score

import (
	"fmt"
	"math"

	"github.com/safeprotest/factcheck/internal/extract"
	"github.com/safeprotest/factcheck/internal/model"
)

// Weights of the three sub-scores in the overall score
const (
	WeightSourceReliability = 0.4
	WeightCommunity         = 0.4
	WeightSuspicion         = 0.2
)

// Verdict thresholds, applied in order by DetermineStatus
const (
	VerifiedThreshold   = 0.8
	FalseThreshold      = 0.3
	UnverifiedThreshold = 0.5
)

// Reasoning lines, emitted in this order
const (
	ReasonSuspiciousLanguage = "Contains suspicious language patterns commonly found in misinformation"
	ReasonReliableSources    = "Backed by reliable and credible sources"
	ReasonLacksSources       = "Lacks credible source verification"
	ReasonHighCommunity      = "High community verification score"
	ReasonLowCommunity       = "Low community trust rating"
)

// Scorer combines suspicion, source reliability and community trust into a
// verdict. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	suspicious []string
	reliable   []string
}

// NewScorer creates a scorer with the default phrase lists
func NewScorer() *Scorer {
	return &Scorer{
		suspicious: DefaultSuspiciousPhrases,
		reliable:   DefaultReliableFragments,
	}
}

// Score evaluates a claim given its sources and the community score for it.
// It performs no I/O; nil sources are treated as an empty list.
func (s *Scorer) Score(claim string, sources []string, community float64) model.Evaluation {
	sources = copySources(sources)

	// 1. Suspicious language (negative weight)
	hits := s.suspicionHits(claim)
	suspicious := suspicionFromHits(hits)

	// 2. Source reliability (positive weight)
	reliability := s.SourceReliability(sources)

	// 3. Weighted overall score
	overall := OverallScore(suspicious, reliability, community)

	result := model.Result{
		Score:      overall,
		Status:     DetermineStatus(overall),
		Confidence: CalculateConfidence(overall, len(sources)),
		Sources:    sources,
		Reasoning:  GenerateReasoning(suspicious, reliability, community),
	}

	return model.Evaluation{
		Claim:  claim,
		Result: result,
		Breakdown: model.Breakdown{
			Suspicion:         suspicious,
			SourceReliability: reliability,
			Community:         community,
			Overall:           overall,
		},
		Keywords: extract.ExtractKeywords(claim),
		Signals: []model.Signal{
			suspicionSignal(hits, suspicious),
			s.reliabilitySignal(sources, reliability),
			communitySignal(community),
			overallSignal(suspicious, reliability, community, overall),
		},
	}
}

// OverallScore is clamp(reliability*0.4 + community*0.4 - suspicious*0.2, 0, 1)
func OverallScore(suspicious, reliability, community float64) float64 {
	score := reliability*WeightSourceReliability + community*WeightCommunity - suspicious*WeightSuspicion
	return math.Max(0, math.Min(1, score))
}

// DetermineStatus maps a score to a verdict. The checks run in this exact
// order; the bands are not a contiguous range table.
func DetermineStatus(score float64) model.Status {
	if score >= VerifiedThreshold {
		return model.StatusVerified
	}
	if score <= FalseThreshold {
		return model.StatusFalse
	}
	if score >= UnverifiedThreshold {
		return model.StatusUnverified
	}
	return model.StatusDisputed
}

// CalculateConfidence measures distance from neutral plus a capped source bonus
func CalculateConfidence(score float64, sourceCount int) float64 {
	base := math.Abs(score-0.5) * 2
	bonus := math.Min(float64(sourceCount)*0.1, 0.3)
	return math.Min(base+bonus, 1)
}

// GenerateReasoning lists the signals that fired, zero to three lines
func GenerateReasoning(suspicious, reliability, community float64) []string {
	reasoning := []string{}

	if suspicious > 0.5 {
		reasoning = append(reasoning, ReasonSuspiciousLanguage)
	}
	if reliability > 0.7 {
		reasoning = append(reasoning, ReasonReliableSources)
	} else if reliability < 0.3 {
		reasoning = append(reasoning, ReasonLacksSources)
	}
	if community > 0.7 {
		reasoning = append(reasoning, ReasonHighCommunity)
	} else if community < 0.3 {
		reasoning = append(reasoning, ReasonLowCommunity)
	}

	return reasoning
}

func copySources(sources []string) []string {
	out := make([]string, len(sources))
	copy(out, sources)
	return out
}

func suspicionSignal(h suspicionHits, score float64) model.Signal {
	severity := model.SeverityInfo
	if score > 0.5 {
		severity = model.SeverityCritical
	} else if score > 0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalSuspiciousLanguage,
		Severity:    severity,
		Description: fmt.Sprintf("%d suspicious phrase(s), caps ratio %.2f, %d exclamation mark(s)", len(h.phrases), h.capsRatio, h.exclamations),
		Data: map[string]interface{}{
			"phrases":      h.phrases,
			"caps_ratio":   h.capsRatio,
			"excess_caps":  h.excessCaps,
			"exclamations": h.exclamations,
			"excess_bangs": h.excessBangs,
			"score":        score,
			"formula":      "min(hits / 5, 1)",
		},
	}
}

func (s *Scorer) reliabilitySignal(sources []string, score float64) model.Signal {
	if len(sources) == 0 {
		return model.Signal{
			Type:        model.SignalSourceReliability,
			Severity:    model.SeverityCritical,
			Description: "No sources provided",
			Data:        map[string]interface{}{"sources": 0, "score": 0.0},
		}
	}

	reliable := s.reliableCount(sources)
	severity := model.SeverityInfo
	if score < 0.3 {
		severity = model.SeverityCritical
	} else if score <= 0.7 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalSourceReliability,
		Severity:    severity,
		Description: fmt.Sprintf("Reliable sources: %d/%d", reliable, len(sources)),
		Data: map[string]interface{}{
			"reliable": reliable,
			"sources":  len(sources),
			"score":    score,
			"formula":  "reliable_count / source_count",
		},
	}
}

func communitySignal(score float64) model.Signal {
	severity := model.SeverityInfo
	if score < 0.3 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalCommunity,
		Severity:    severity,
		Description: fmt.Sprintf("Community score: %.2f", score),
		Data: map[string]interface{}{
			"score":   score,
			"formula": "mean(true=1, disputed=0.5, false=0); 0.5 without votes",
		},
	}
}

func overallSignal(suspicious, reliability, community, overall float64) model.Signal {
	return model.Signal{
		Type:        model.SignalOverall,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Overall score: %.2f", overall),
		Data: map[string]interface{}{
			"suspicion":          suspicious,
			"source_reliability": reliability,
			"community":          community,
			"score":              overall,
			"formula":            "clamp(source_reliability*0.4 + community*0.4 - suspicion*0.2, 0, 1)",
		},
	}
}
