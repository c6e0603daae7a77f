package score

import (
	"math"
	"reflect"
	"testing"

	"github.com/safeprotest/factcheck/internal/model"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestSuspicion(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name  string
		claim string
		want  float64
	}{
		{"empty claim", "", 0},
		{"plain claim", "The march starts at noon", 0},
		{"one phrase", "Urgent update about the route", 0.2},
		{"phrase plus caps ratio", "URGENT ROUTE update", 0.4},
		{"two exclamations are fine", "Meet at the park!!", 0},
		{"three exclamations count", "Meet at the park!!!", 0.2},
		{"multi-word phrase", "the government cover-up continues", 0.2},
		{"clamped to one", "BREAKING URGENT EXCLUSIVE LEAKED SECRET CONFIRMED!!!", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Suspicion(tt.claim)
			if math.IsNaN(got) {
				t.Fatalf("Suspicion(%q) is NaN", tt.claim)
			}
			if !almostEqual(got, tt.want) {
				t.Errorf("Suspicion(%q) = %v, want %v", tt.claim, got, tt.want)
			}
		})
	}
}

func TestCapsRatio(t *testing.T) {
	if got := capsRatio(""); got != 0 {
		t.Errorf("capsRatio(\"\") = %v, want 0", got)
	}
	if got := capsRatio("ABcd"); !almostEqual(got, 0.5) {
		t.Errorf("capsRatio(\"ABcd\") = %v, want 0.5", got)
	}
	// Non-ASCII capitals are not counted
	if got := capsRatio("ÉÉab"); got != 0 {
		t.Errorf("capsRatio(\"ÉÉab\") = %v, want 0", got)
	}
	// Characters outside the BMP are two UTF-16 units
	if got := capsRatio("AB🚨"); !almostEqual(got, 0.5) {
		t.Errorf("capsRatio(\"AB🚨\") = %v, want 0.5", got)
	}
	if got := capsRatio("AB🚨🚨🚨"); !almostEqual(got, 0.25) {
		t.Errorf("capsRatio(\"AB🚨🚨🚨\") = %v, want 0.25", got)
	}
}

func TestSourceReliability(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name    string
		sources []string
		want    float64
	}{
		{"no sources", []string{}, 0},
		{"nil sources", nil, 0},
		{"single reliable source", []string{"Reuters reports..."}, 1},
		{"unknown blog", []string{"randomblog.com"}, 0},
		{"half reliable", []string{"bbc.co.uk", "randomblog.com"}, 0.5},
		{"case-insensitive", []string{"NPR.org"}, 1},
		// "ap" is a plain substring, so unrelated hosts that contain it match
		{"ap substring", []string{"apple.com"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.SourceReliability(tt.sources)
			if !almostEqual(got, tt.want) {
				t.Errorf("SourceReliability(%v) = %v, want %v", tt.sources, got, tt.want)
			}
		})
	}
}

func TestDetermineStatus_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Status
	}{
		{1.0, model.StatusVerified},
		{0.8, model.StatusVerified},
		{0.79, model.StatusUnverified},
		{0.5, model.StatusUnverified},
		{0.49, model.StatusDisputed},
		{0.4, model.StatusDisputed},
		{0.31, model.StatusDisputed},
		{0.3, model.StatusFalse},
		{0.0, model.StatusFalse},
	}

	for _, tt := range tests {
		if got := DetermineStatus(tt.score); got != tt.want {
			t.Errorf("DetermineStatus(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestDetermineStatus_Total(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		s := float64(i) / 1000
		if status := DetermineStatus(s); !status.Valid() {
			t.Fatalf("DetermineStatus(%v) = %q, not a valid status", s, status)
		}
	}
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name    string
		score   float64
		sources int
		want    float64
	}{
		{"neutral without sources", 0.5, 0, 0},
		{"neutral with one source", 0.5, 1, 0.1},
		{"source bonus capped", 0.5, 10, 0.3},
		{"extreme score", 0.0, 0, 1},
		{"saturates at one", 0.9, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateConfidence(tt.score, tt.sources)
			if !almostEqual(got, tt.want) {
				t.Errorf("CalculateConfidence(%v, %d) = %v, want %v", tt.score, tt.sources, got, tt.want)
			}
		})
	}
}

func TestCalculateConfidence_MonotonicInSources(t *testing.T) {
	for _, score := range []float64{0, 0.2, 0.4, 0.5, 0.6, 0.85, 1} {
		prev := -1.0
		for n := 0; n <= 8; n++ {
			got := CalculateConfidence(score, n)
			if got < prev {
				t.Errorf("confidence decreased for score %v: %d sources -> %v, previous %v", score, n, got, prev)
			}
			if got > 1 {
				t.Errorf("confidence above 1 for score %v with %d sources: %v", score, n, got)
			}
			prev = got
		}
	}
}

func TestOverallScore_Clamped(t *testing.T) {
	if got := OverallScore(1, 0, 0); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
	if got := OverallScore(0, 1, 1); !almostEqual(got, 0.8) {
		t.Errorf("expected 0.8, got %v", got)
	}
}

func TestGenerateReasoning(t *testing.T) {
	tests := []struct {
		name        string
		suspicious  float64
		reliability float64
		community   float64
		want        []string
	}{
		{"nothing fires", 0.2, 0.5, 0.5, []string{}},
		{"all negative", 0.6, 0.1, 0.1, []string{ReasonSuspiciousLanguage, ReasonLacksSources, ReasonLowCommunity}},
		{"all positive", 0, 0.9, 0.9, []string{ReasonReliableSources, ReasonHighCommunity}},
		{"thresholds are strict", 0.5, 0.7, 0.3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateReasoning(tt.suspicious, tt.reliability, tt.community)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScore_SensationalClaimWithoutSources(t *testing.T) {
	scorer := NewScorer()

	eval := scorer.Score("BREAKING: CONFIRMED!!! Secret deal leaked", []string{}, 0.5)

	if eval.Breakdown.Suspicion != 1 {
		t.Errorf("expected suspicion 1, got %v", eval.Breakdown.Suspicion)
	}
	if eval.Breakdown.SourceReliability != 0 {
		t.Errorf("expected source reliability 0, got %v", eval.Breakdown.SourceReliability)
	}
	if !almostEqual(eval.Result.Score, 0) {
		t.Errorf("expected overall 0, got %v", eval.Result.Score)
	}
	if eval.Result.Status != model.StatusFalse {
		t.Errorf("expected status false, got %s", eval.Result.Status)
	}
	if !almostEqual(eval.Result.Confidence, 1) {
		t.Errorf("expected confidence 1, got %v", eval.Result.Confidence)
	}

	want := []string{ReasonSuspiciousLanguage, ReasonLacksSources}
	if !reflect.DeepEqual(eval.Result.Reasoning, want) {
		t.Errorf("expected reasoning %v, got %v", want, eval.Result.Reasoning)
	}
}

func TestScore_ReliableSources(t *testing.T) {
	scorer := NewScorer()

	sources := []string{"Reuters.com", "Official government statement"}
	eval := scorer.Score("Reuters confirms new policy", sources, 0.5)

	if eval.Breakdown.Suspicion != 0 {
		t.Errorf("expected no suspicion (\"confirms\" is not \"confirmed\"), got %v", eval.Breakdown.Suspicion)
	}
	if eval.Breakdown.SourceReliability != 1 {
		t.Errorf("expected source reliability 1, got %v", eval.Breakdown.SourceReliability)
	}
	if math.Abs(eval.Result.Score-0.6) > 1e-6 {
		t.Errorf("expected overall ~0.6, got %v", eval.Result.Score)
	}
	if eval.Result.Status != model.StatusUnverified {
		t.Errorf("expected status unverified, got %s", eval.Result.Status)
	}
	if !reflect.DeepEqual(eval.Result.Sources, sources) {
		t.Errorf("expected sources echoed, got %v", eval.Result.Sources)
	}
	if !reflect.DeepEqual(eval.Result.Reasoning, []string{ReasonReliableSources}) {
		t.Errorf("unexpected reasoning %v", eval.Result.Reasoning)
	}
}

func TestScore_Idempotent(t *testing.T) {
	scorer := NewScorer()
	claim := "Urgent: police have closed the bridge!!!"
	sources := []string{"bbc.com/news", "someblog.net"}

	first := scorer.Score(claim, sources, 0.75)
	second := scorer.Score(claim, sources, 0.75)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical evaluations:\n%+v\n%+v", first, second)
	}
}

func TestScore_NilSourcesEchoEmpty(t *testing.T) {
	eval := NewScorer().Score("Road closed on Main St", nil, 0.5)

	if eval.Result.Sources == nil || len(eval.Result.Sources) != 0 {
		t.Errorf("expected empty non-nil sources, got %#v", eval.Result.Sources)
	}
	if eval.Result.Reasoning == nil {
		t.Error("expected non-nil reasoning")
	}
}

func TestScore_SourcesAreCopied(t *testing.T) {
	sources := []string{"reuters.com"}
	eval := NewScorer().Score("Road closed", sources, 0.5)

	sources[0] = "changed"
	if eval.Result.Sources[0] != "reuters.com" {
		t.Errorf("result aliases caller slice: %v", eval.Result.Sources)
	}
}

func TestScore_Signals(t *testing.T) {
	eval := NewScorer().Score("Secret meeting", []string{"randomblog.com"}, 0.2)

	if len(eval.Signals) != 4 {
		t.Fatalf("expected 4 signals, got %d", len(eval.Signals))
	}

	wantTypes := []model.SignalType{
		model.SignalSuspiciousLanguage,
		model.SignalSourceReliability,
		model.SignalCommunity,
		model.SignalOverall,
	}
	for i, want := range wantTypes {
		if eval.Signals[i].Type != want {
			t.Errorf("signal %d: expected %s, got %s", i, want, eval.Signals[i].Type)
		}
		if eval.Signals[i].Data == nil {
			t.Errorf("signal %d: expected formula data", i)
		}
	}

	if eval.Signals[1].Severity != model.SeverityCritical {
		t.Errorf("expected critical reliability signal, got %s", eval.Signals[1].Severity)
	}
	if eval.Signals[2].Severity != model.SeverityWarning {
		t.Errorf("expected warning community signal, got %s", eval.Signals[2].Severity)
	}
}

func TestScore_Keywords(t *testing.T) {
	eval := NewScorer().Score("Police moved the barricade", nil, 0.5)

	want := []string{"police", "moved", "barricade"}
	if !reflect.DeepEqual(eval.Keywords, want) {
		t.Errorf("expected keywords %v, got %v", want, eval.Keywords)
	}
}
