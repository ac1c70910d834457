package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"brios/internal/config"
	"brios/internal/model"
	"brios/internal/scan"
	"brios/internal/signal"
	"brios/internal/ui"
)

var scanDuration time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover nearby devices",
	Long: `Scan for advertising devices and list each one with its signal
strength and estimated distance. Useful for finding the address to put
in the config.

Examples:
  brios scan
  brios scan --duration 15s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return scanCommand()
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "how long to scan")
}

type discovered struct {
	rssi int
	seen int
}

func scanCommand() error {
	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNoTarget) {
		// Scanning is how you find the address in the first place.
		cfg = config.DefaultConfig()
	} else if err != nil {
		return err
	}
	proc := signal.NewProcessor(cfg.Signal.SampleWindow, cfg.Signal.TxPowerAt1m, cfg.Signal.PathLossExponent)

	var mu sync.Mutex
	found := make(map[string]*discovered)
	backend := scan.NewBackend(cfg.Target.UseBDAddr)
	sc := backend(func(adv model.Advertisement) {
		mu.Lock()
		defer mu.Unlock()
		d, ok := found[adv.Address]
		if !ok {
			d = &discovered{rssi: adv.RSSI}
			found[adv.Address] = d
		}
		d.rssi = adv.RSSI
		d.seen++
	})

	ctx, cancel := context.WithTimeout(context.Background(), scanDuration+cfg.Scanner.StartTimeout)
	defer cancel()
	if err := sc.Start(ctx); err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	fmt.Printf("Scanning for %s...\n\n", scanDuration)
	time.Sleep(scanDuration)
	if err := sc.Stop(ctx); err != nil {
		ui.Warnf("scanner stop failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(found) == 0 {
		ui.Warnf("no devices found")
		return nil
	}

	addrs := make([]string, 0, len(found))
	for addr := range found {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	fmt.Printf("%-40s %8s %10s %6s\n", "ADDRESS", "RSSI", "DISTANCE", "ADVS")
	for _, addr := range addrs {
		d := found[addr]
		dist := proc.Estimate(float64(d.rssi))
		distStr := "n/a"
		if dist != signal.InvalidDistance {
			distStr = fmt.Sprintf("%.2fm", dist)
		}
		fmt.Printf("%-40s %5d dBm %10s %6d\n", addr, d.rssi, distStr, d.seen)
	}
	ui.Successf("%d device(s) found", len(found))
	return nil
}
