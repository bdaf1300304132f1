package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"notefetch/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notefetch [username] [password]",
	Short: "Save every image attached to your notes",
	Long: `notefetch logs into a note service account, walks every notebook and note,
and saves each GIF, JPEG and PNG attachment as {guid}_{fileName} in one
output directory.

Credentials can come from the command line, the configuration file, the
NOTEFETCH_USERNAME / NOTEFETCH_PASSWORD environment variables, or an account
stored with 'notefetch auth login'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// logLevelOverride returns the level forced by --verbose, --quiet or an
// explicit --log-level, or "" to keep the configured level
func logLevelOverride(cmd *cobra.Command) string {
	switch {
	case verbose:
		return "debug"
	case cmd.Flags().Changed("log-level"):
		return logLevel
	case quiet:
		return "error"
	default:
		return ""
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.notefetch.yaml or ~/.config/notefetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only failures and the summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log everything, including every request")

	rootCmd.SetVersionTemplate(`notefetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
