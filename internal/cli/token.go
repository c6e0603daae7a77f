package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/server"
)

var tokenTTL time.Duration

// tokenCmd issues voter tokens for the HTTP API
var tokenCmd = &cobra.Command{
	Use:   "token <voter-id>",
	Short: "Issue a signed voter token for the HTTP API",
	Long: `Token signs an HS256 bearer token whose subject is the voter id.
The API accepts it as "Authorization: Bearer <token>" when
server.jwt_secret (FACTCHECK_SERVER_JWT_SECRET) is set.

Example:
  factcheck token medic-7 --ttl 72h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Server.JWTSecret == "" {
			return errors.New("server.jwt_secret is not set (use FACTCHECK_SERVER_JWT_SECRET)")
		}

		auth := server.NewAuthenticator(cfg.Server.JWTSecret, "")
		token, err := auth.Issue(args[0], tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
