package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/community"
	"github.com/safeprotest/factcheck/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd evaluates many claims from a file
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score many claims from a file in parallel",
	Long: `Batch scores every claim in a file concurrently. Nothing is stored.

Input formats:
- .yaml/.yml: a list of {claim, sources} items, or a document with a
  "claims" list
- anything else: one claim per line, sources after " | " separated by
  commas; blank lines and # comments are skipped

Community scores are looked up once per distinct claim text for the
whole run.

Example:
  factcheck batch rumors.txt
  factcheck batch rumors.yaml --concurrency 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print JSON")
}

// batchLine is one result in --json output
type batchLine struct {
	*worker.EvaluateResult
	Error string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Fact Check Batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	// One memo per run: every worker sees the same community snapshot
	svc := a.svc.WithProvider(community.NewMemo(community.NewLedgerProvider(a.store, a.store)))
	processor := worker.NewBatchEvaluator(svc, concurrency)

	results, err := processor.EvaluateFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	lines := make([]batchLine, 0, len(results))
	successCount, failureCount := 0, 0

	for _, result := range results {
		line := batchLine{EvaluateResult: result}
		if result.Error != nil {
			failureCount++
			line.Error = result.Error.Error()
			if !batchJSON {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncate(result.Item.Claim, 60), result.Error)
			}
		} else {
			successCount++
			if !batchJSON {
				fmt.Fprintf(out, "%s %.2f  %s\n", badge(result.Evaluation.Result.Status), result.Evaluation.Result.Score, truncate(result.Item.Claim, 72))
			}
		}
		lines = append(lines, line)
	}

	if batchJSON {
		if err := writeJSON(out, lines); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch stopped early: %w", err)
	}
	return nil
}
