// Package llm produces an optional plain-language narrative for an
// evaluation. The narrative is display text only and never changes a score.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safeprotest/factcheck/internal/model"
)

// ErrCitationLeak is returned when a model cites a URL outside the claim's sources
var ErrCitationLeak = errors.New("narrative cited a URL outside the submitted sources")

// Provider generates narratives
type Provider interface {
	Name() string
	Explain(ctx context.Context, req ExplainRequest) (*ExplainResponse, error)
	IsAvailable(ctx context.Context) bool
}

// ExplainRequest is one narrative request
type ExplainRequest struct {
	Evaluation model.Evaluation

	// AllowedURLs is the only set of URLs the model may cite
	AllowedURLs []string

	Prompt    string // Overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// ExplainResponse is the provider output
type ExplainResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config configures the narrative provider
type Config struct {
	Provider  string // openai, ollama, "" (disabled)
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	MaxTokens int
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 400,
	}
}

// ConfigFromModel converts the application config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
	}
}

const maxPromptURLs = 20

// BuildPrompt describes an evaluation for the model. The verdict is already
// decided; the model only explains the signals behind it.
func BuildPrompt(eval model.Evaluation, allowedURLs []string) string {
	var b strings.Builder

	b.WriteString(`You are explaining an automated credibility check of a claim shared during a protest. The verdict below was computed by fixed rules; you must not change, dispute or restate it as your own judgement.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:`)
	b.WriteString(joinURLs(allowedURLs))
	b.WriteString(`

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. Never say the claim "is true" or "is false". Describe which signals raised or lowered the score.
4. If sources or votes are missing, say so plainly.

`)

	r := eval.Result
	fmt.Fprintf(&b, "Claim: %q\n", eval.Claim)
	fmt.Fprintf(&b, "Verdict: %s (score %.2f, confidence %.2f)\n", r.Status, r.Score, r.Confidence)
	fmt.Fprintf(&b, "Suspicious language: %.2f\n", eval.Breakdown.Suspicion)
	fmt.Fprintf(&b, "Source reliability: %.2f across %d sources\n", eval.Breakdown.SourceReliability, len(r.Sources))
	fmt.Fprintf(&b, "Community score: %.2f\n", eval.Breakdown.Community)

	if len(r.Reasoning) > 0 {
		b.WriteString("\nSignals that fired:\n")
		for _, reason := range r.Reasoning {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}

	b.WriteString("\nWrite 2-3 short sentences a marcher can read on a phone.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "\n(No source URLs available)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= maxPromptURLs {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-maxPromptURLs)
			break
		}
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}

// AllowedURLs returns the sources that are absolute http(s) URLs
func AllowedURLs(sources []string) []string {
	var out []string
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			out = append(out, s)
		}
	}
	return out
}

// checkCitations fails when any cited URL is outside allowed
func checkCitations(cited, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		ok[strings.TrimRight(u, "/")] = true
	}
	for _, u := range cited {
		if !ok[strings.TrimRight(u, "/")] {
			return fmt.Errorf("%w: %s", ErrCitationLeak, u)
		}
	}
	return nil
}
