package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"brios/internal/daemon"
	"brios/internal/ui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor as a background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate config before forking so mistakes surface here, not
		// in the daemon log.
		if _, err := loadConfig(); err != nil {
			return err
		}
		var extra []string
		if configFlag != "" {
			extra = append(extra, "--config", configFlag)
		}
		pid, err := daemon.Start(extra)
		if err != nil {
			return err
		}
		logPath, _ := daemon.LogFile()
		ui.Successf("daemon started (pid %d), logging to %s", pid, logPath)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.Stop(); err != nil {
			if errors.Is(err, daemon.ErrNotRunning) {
				ui.Warnf("daemon is not running")
				return nil
			}
			return err
		}
		ui.Successf("daemon stopped")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemon.Stop(); err != nil && !errors.Is(err, daemon.ErrNotRunning) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
		var extra []string
		if configFlag != "" {
			extra = append(extra, "--config", configFlag)
		}
		pid, err := daemon.Start(extra)
		if err != nil {
			return err
		}
		ui.Successf("daemon restarted (pid %d)", pid)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := daemon.Running()
		if err != nil {
			if errors.Is(err, daemon.ErrNotRunning) {
				ui.Errorf("daemon is not running")
				return nil
			}
			return err
		}
		logPath, _ := daemon.LogFile()
		ui.Successf("daemon running (pid %d)", pid)
		fmt.Printf("  log: %s\n", logPath)
		return nil
	},
}
