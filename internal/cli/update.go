package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"brios/internal/ui"
	"brios/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a newer release",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		rel, newer, err := updater.NewChecker().Check(ctx, version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !newer {
			ui.Successf("you are up to date (%s)", version)
			return nil
		}
		ui.Warnf("new release available: %s (you have %s)", rel.TagName, version)
		if rel.HTMLURL != "" {
			fmt.Printf("  %s\n", rel.HTMLURL)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("brios %s (commit %s, built %s)\n", version, commit, date)
	},
}
