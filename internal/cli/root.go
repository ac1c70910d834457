// Package cli wires the cobra command tree: foreground monitoring,
// one-shot scanning, the daemon lifecycle and the update check.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "brios",
	Short: "Bluetooth proximity screen lock",
	Long: `brios estimates the distance to a Bluetooth beacon from its
advertisement signal strength and locks the screen when the device
moves out of range.

Configuration is read from .brios.yaml in the working directory or
~/.config/brios/config.yaml, with BRIOS_* environment overrides.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersionInfo records build metadata injected via ldflags.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}
