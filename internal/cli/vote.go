package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/model"
)

var (
	voteAs       string
	voteEvidence string
	votesJSON    bool
)

// voteCmd records a community vote
var voteCmd = &cobra.Command{
	Use:   "vote <id> <true|false|disputed>",
	Short: "Vote on a stored fact check",
	Long: `Vote records your stance on a stored fact check. Voting again replaces
your earlier vote. When factcheck.recheck_on_vote is set the record's
verdict is recomputed right away.

Example:
  factcheck vote 86Rf07xd4z false --evidence "bridge open at 14:05, photo in channel"`,
	Args: cobra.ExactArgs(2),
	RunE: runVote,
}

// votesCmd lists the votes on a record
var votesCmd = &cobra.Command{
	Use:   "votes <id>",
	Short: "List the votes on a stored fact check",
	Args:  cobra.ExactArgs(1),
	RunE:  runVotes,
}

func init() {
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(votesCmd)

	voteCmd.Flags().StringVar(&voteAs, "as", "", "voter id (default: current OS user)")
	voteCmd.Flags().StringVar(&voteEvidence, "evidence", "", "free-text evidence for the vote")

	votesCmd.Flags().BoolVar(&votesJSON, "json", false, "print JSON")
}

func runVote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	vote, err := a.svc.RecordVote(ctx, args[0], identity(voteAs), args[1], voteEvidence)
	if err != nil {
		return fmt.Errorf("vote: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Vote recorded successfully\n")

	rec, err := a.svc.Get(ctx, vote.RecordID)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	renderRecord(cmd.OutOrStdout(), rec)
	return nil
}

func runVotes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	votes, err := a.svc.ListVotes(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list votes: %w", err)
	}

	if votesJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Votes []model.CommunityVote `json:"votes"`
			Tally model.Tally           `json:"tally"`
		}{votes, model.TallyVotes(votes)})
	}
	renderVotes(cmd.OutOrStdout(), votes)
	return nil
}
