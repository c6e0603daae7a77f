package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/safeprotest/factcheck/internal/model"
)

// Narrative is the outcome of an explanation attempt. Failures degrade to
// warnings so a missing narrative never fails a check.
type Narrative struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Text      string   `json:"text,omitempty"`
	CitedURLs []string `json:"cited_urls,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Summarizer wraps an optional provider
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer builds a summarizer; a disabled config yields one whose
// Explain returns nil
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// NewSummarizerWithProvider wraps an existing provider
func NewSummarizerWithProvider(p Provider, config Config) *Summarizer {
	return &Summarizer{provider: p, config: config}
}

func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Explain narrates eval. It returns nil, nil when narratives are disabled.
func (s *Summarizer) Explain(ctx context.Context, eval model.Evaluation) (*Narrative, error) {
	if s.provider == nil {
		return nil, nil
	}

	n := &Narrative{
		Enabled:  true,
		Provider: s.provider.Name(),
		Model:    s.config.Model,
	}

	if !s.provider.IsAvailable(ctx) {
		n.Enabled = false
		n.Warnings = append(n.Warnings, fmt.Sprintf("LLM provider %s is not available", n.Provider))
		return n, nil
	}

	resp, err := s.provider.Explain(ctx, ExplainRequest{
		Evaluation:  eval,
		AllowedURLs: AllowedURLs(eval.Result.Sources),
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		n.Warnings = append(n.Warnings, fmt.Sprintf("Narrative generation failed: %v", err))
		return n, nil
	}

	n.Text = resp.Text
	n.CitedURLs = resp.CitedURLs
	if resp.Model != "" {
		n.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		n.Warnings = append(n.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if len(resp.CitedURLs) > 0 {
		n.Warnings = append(n.Warnings, fmt.Sprintf("Verified %d citations against the submitted sources", len(resp.CitedURLs)))
	}
	return n, nil
}

// RenderMarkdown renders a narrative as a standalone markdown section
func RenderMarkdown(n *Narrative) string {
	if n == nil || !n.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Narrative\n\n")
	b.WriteString("> GENERATED CONTENT. The verdict and score were determined independently of this text.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", n.Model)
	}
	b.WriteString("\n")

	if n.Text == "" {
		b.WriteString("_No narrative generated._\n")
	} else {
		b.WriteString(n.Text)
		b.WriteString("\n")
	}

	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
