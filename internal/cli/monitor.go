package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"brios/internal/config"
	"brios/internal/daemon"
	"brios/internal/events"
	"brios/internal/logging"
	"brios/internal/monitor"
	"brios/internal/scan"
	"brios/internal/system"
	"brios/internal/ui"
)

var daemonFlag bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the target device in the foreground",
	Long: `Continuously scan for the target device, estimate its distance and
lock the screen when it moves out of range. Runs until interrupted.

Examples:
  brios monitor
  brios monitor --config ./office.yaml
  BRIOS_MONITOR_DISTANCE_THRESHOLD_M=3.5 brios monitor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand()
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&daemonFlag, "daemon", false, "run as a managed background process")
	_ = monitorCmd.Flags().MarkHidden("daemon")
}

func monitorCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if daemonFlag {
		// The daemon's stdout goes to the managed log; a configured
		// second sink would duplicate every line.
		logFile = ""
		if err := daemon.WriteOwnPID(); err != nil {
			return fmt.Errorf("record pid: %w", err)
		}
		defer func() { _ = daemon.RemovePIDFile() }()
	}
	logger, closeLog, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, logFile)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closeLog()

	if !daemonFlag {
		fmt.Print(ui.RenderBanner(cfg, version))
	}

	store := events.NewStore(cfg.Events.StoreLimit)
	m := monitor.New(cfg, logger, store, system.New(), scan.NewBackend(cfg.Target.UseBDAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		return err
	}
	if !daemonFlag {
		fmt.Print(ui.RenderStatus(m.Status(), true))
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	path, err := config.Find(configFlag)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
