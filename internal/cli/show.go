package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/model"
)

var (
	showJSON  bool
	listQuery string
	listLimit int
	listJSON  bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored fact check with its votes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.svc.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("show: %w", err)
		}
		if showJSON {
			return writeJSON(cmd.OutOrStdout(), rec)
		}
		renderRecord(cmd.OutOrStdout(), rec)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored fact checks, newest first",
	Long: `List prints stored fact checks, newest first. --query keeps records whose
claim or any source contains the text, ignoring case.

Example:
  factcheck list --query bridge --limit 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.svc.List(ctx, model.ListOptions{Query: listQuery, Limit: listLimit}.Normalize())
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			return writeJSON(out, struct {
				FactChecks []model.Record `json:"factChecks"`
			}{records})
		}
		if len(records) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No fact checks found"))
			return nil
		}
		for i := range records {
			renderRecordLine(out, &records[i])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON")

	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "case-insensitive text filter")
	listCmd.Flags().IntVar(&listLimit, "limit", model.DefaultListLimit, "maximum records (max 100)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}
