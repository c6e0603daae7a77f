package cli

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/factcheck"
)

var (
	submitSources []string
	submitAs      string
	submitJSON    bool
)

// submitCmd scores a claim and stores it as a new record
var submitCmd = &cobra.Command{
	Use:   "submit <claim>",
	Short: "Score a claim and store it as a fact check",
	Long: `Submit scores a claim and stores it as a record others can vote on.
The record id is printed on success.

Example:
  factcheck submit "Police closed Main St bridge" --source reuters.com --as medic-7`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringArrayVarP(&submitSources, "source", "s", nil, "source URL or domain (repeatable)")
	submitCmd.Flags().StringVar(&submitAs, "as", "", "submitter id (default: current OS user)")
	submitCmd.Flags().BoolVar(&submitJSON, "json", false, "print JSON")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, _, err := a.svc.Submit(ctx, factcheck.SubmitRequest{
		Claim:       args[0],
		Sources:     submitSources,
		SubmittedBy: identity(submitAs),
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if submitJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintf(os.Stderr, "✓ Stored fact check %s\n\n", rec.ID)
	renderRecord(cmd.OutOrStdout(), rec)
	return nil
}

// identity returns explicit, or the local account name as a fallback
func identity(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "anonymous"
}
