package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/llm"
	"github.com/safeprotest/factcheck/internal/model"
)

var (
	checkSources []string
	checkJSON    bool
	checkExplain bool
	checkTimeout time.Duration
)

// checkCmd scores a claim without storing it
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Score a claim without storing it",
	Long: `Check scores claim text against its sources and any community votes on
records with the same text. Nothing is stored.

Example:
  factcheck check "Police closed Main St bridge" --source reuters.com
  factcheck check "BREAKING!!! They are lying to you" --json
  factcheck check "March moved to 5pm" --source https://apnews.com/x --explain`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringArrayVarP(&checkSources, "source", "s", nil, "source URL or domain (repeatable)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print JSON")
	checkCmd.Flags().BoolVar(&checkExplain, "explain", false, "add an LLM narrative (needs llm.provider)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "overall timeout")
}

// checkOutput is the JSON shape of a check
type checkOutput struct {
	*model.Evaluation
	Narrative *llm.Narrative `json:"narrative,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	eval, err := a.svc.Evaluate(ctx, args[0], checkSources)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	var narrative *llm.Narrative
	if checkExplain {
		summarizer, err := newSummarizer(a.cfg.LLM)
		if err != nil {
			return err
		}
		if !summarizer.IsEnabled() {
			fmt.Fprintf(os.Stderr, "⚠  --explain ignored: set llm.provider (openai or ollama)\n")
		} else {
			fmt.Fprintf(os.Stderr, "⚙️  Generating narrative with %s...\n", summarizer.ProviderName())
			narrative, err = summarizer.Explain(ctx, *eval)
			if err != nil {
				return fmt.Errorf("explain: %w", err)
			}
		}
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		return writeJSON(out, checkOutput{Evaluation: eval, Narrative: narrative})
	}

	renderEvaluation(out, eval)
	if md := llm.RenderMarkdown(narrative); md != "" {
		fmt.Fprintf(out, "\n%s", md)
	}
	return nil
}
