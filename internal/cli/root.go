package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factcheck",
	Short: "SafeProtest fact check - rumor scoring and community votes",
	Long: `factcheck scores claims that circulate during protests and lets the
community vote on them.

A claim's score combines three signals: sensational language in the claim,
how many of its sources are known-reliable outlets, and community votes on
the same claim. The result is one of verified, unverified, disputed or false.

Scores are heuristics. They flag rumors worth a second look; they do not
establish what is true.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "factcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factcheck/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("store", "", "record store: sqlite, firestore, memory")
	flags.String("data-dir", "", "sqlite data directory (default: $HOME/.factcheck/data)")
	flags.String("log-format", "", "log format: text, json")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and FACTCHECK_* variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".factcheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	bindFlags()

	viper.SetEnvPrefix("FACTCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Well-known names used by other tools
	_ = viper.BindEnv("llm.api_key", "FACTCHECK_LLM_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("events.nats_url", "FACTCHECK_EVENTS_NATS_URL", "NATS_URL")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindFlags maps flags onto config keys; a flag wins only when it was set
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("log.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("store.driver", flags.Lookup("store"))
	_ = viper.BindPFlag("store.path", flags.Lookup("data-dir"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
