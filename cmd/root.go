package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/avelez/graphmail/internal/config"
	"github.com/avelez/graphmail/internal/logging"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// cfg and logger are initialized once per invocation by the root
	// command's PersistentPreRunE and passed into components explicitly.
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command for the graphmail application
var rootCmd = &cobra.Command{
	Use:   "graphmail",
	Short: "Fetch, cache, and download Outlook mail from the command line",
	Long: `graphmail authenticates against Microsoft Graph with the OAuth
device-code flow, caches email metadata in a local SQLite database, and
downloads attachments.

Fetched messages are stored locally, so listing, searching, and exporting
work offline once a folder has been fetched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return fmt.Errorf("choose only one of --verbose or --quiet")
		}

		// A local .env may provide GRAPHMAIL_* overrides; absence is fine.
		_ = godotenv.Load()

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if quiet {
			level = "error"
		}
		logger = logging.Setup(os.Stderr, level)
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "graphmail version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newDownloadPayrollCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVersionCmd())
}
