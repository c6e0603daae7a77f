package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/recheck"
)

var (
	recheckAll   bool
	recheckLimit int
)

// recheckCmd recomputes stored verdicts from current votes
var recheckCmd = &cobra.Command{
	Use:   "recheck [id]",
	Short: "Recompute stored verdicts from current votes",
	Long: `Recheck recomputes a record's verdict against its own votes and stores
the new result. With --all it sweeps the newest records instead.

Example:
  factcheck recheck 86Rf07xd4z
  factcheck recheck --all --limit 500`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecheck,
}

func init() {
	rootCmd.AddCommand(recheckCmd)

	recheckCmd.Flags().BoolVar(&recheckAll, "all", false, "recheck the newest records")
	recheckCmd.Flags().IntVar(&recheckLimit, "limit", 0, "records to sweep with --all (default: recheck.limit)")
}

func runRecheck(cmd *cobra.Command, args []string) error {
	if recheckAll == (len(args) == 1) {
		return errors.New("give either a record id or --all")
	}
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !recheckAll {
		rec, err := a.svc.Recheck(ctx, args[0])
		if err != nil {
			return fmt.Errorf("recheck: %w", err)
		}
		renderRecord(cmd.OutOrStdout(), rec)
		return nil
	}

	cfg := a.cfg.Recheck
	if recheckLimit > 0 {
		cfg.Limit = recheckLimit
	}
	fmt.Fprintf(os.Stderr, "⚙️  Rechecking up to %d records with %d workers...\n", cfg.Limit, a.cfg.Workers)

	stats, err := recheck.NewSweeper(a.svc, cfg, a.cfg.Workers, a.logger).Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Checked: %d\nChanged: %d\nFailed:  %d\n", stats.Checked, stats.Changed, stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d rechecks failed", stats.Failed, stats.Checked)
	}
	return nil
}
