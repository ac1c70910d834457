package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Target  TargetConfig  `json:"target" yaml:"target" mapstructure:"target"`
	Signal  SignalConfig  `json:"signal" yaml:"signal" mapstructure:"signal"`
	Monitor MonitorConfig `json:"monitor" yaml:"monitor" mapstructure:"monitor"`
	Scanner ScannerConfig `json:"scanner" yaml:"scanner" mapstructure:"scanner"`
	Events  EventsConfig  `json:"events" yaml:"events" mapstructure:"events"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	File   string `json:"file" yaml:"file" mapstructure:"file"`
}

type TargetConfig struct {
	Name      string `json:"name" yaml:"name" mapstructure:"name"`
	Type      string `json:"type" yaml:"type" mapstructure:"type"`
	MAC       string `json:"mac" yaml:"mac" mapstructure:"mac"`
	UUID      string `json:"uuid" yaml:"uuid" mapstructure:"uuid"`
	UseBDAddr bool   `json:"use_bdaddr" yaml:"use_bdaddr" mapstructure:"use_bdaddr"`
}

type SignalConfig struct {
	SampleWindow     int     `json:"sample_window" yaml:"sample_window" mapstructure:"sample_window"`
	TxPowerAt1m      int     `json:"tx_power_at_1m" yaml:"tx_power_at_1m" mapstructure:"tx_power_at_1m"`
	PathLossExponent float64 `json:"path_loss_exponent" yaml:"path_loss_exponent" mapstructure:"path_loss_exponent"`
}

type MonitorConfig struct {
	DistanceThresholdM  float64        `json:"distance_threshold_m" yaml:"distance_threshold_m" mapstructure:"distance_threshold_m"`
	GracePeriod         time.Duration  `json:"grace_period" yaml:"grace_period" mapstructure:"grace_period"`
	LockLoop            LockLoopConfig `json:"lock_loop" yaml:"lock_loop" mapstructure:"lock_loop"`
	StaleScanTimeout    time.Duration  `json:"stale_scan_timeout" yaml:"stale_scan_timeout" mapstructure:"stale_scan_timeout"`
	StuckHandlerTimeout time.Duration  `json:"stuck_handler_timeout" yaml:"stuck_handler_timeout" mapstructure:"stuck_handler_timeout"`
	WatchdogInterval    time.Duration  `json:"watchdog_interval" yaml:"watchdog_interval" mapstructure:"watchdog_interval"`
	LockPollInterval    time.Duration  `json:"lock_poll_interval" yaml:"lock_poll_interval" mapstructure:"lock_poll_interval"`
	EventBuffer         int            `json:"event_buffer" yaml:"event_buffer" mapstructure:"event_buffer"`
}

type LockLoopConfig struct {
	Threshold int           `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Window    time.Duration `json:"window" yaml:"window" mapstructure:"window"`
	Penalty   time.Duration `json:"penalty" yaml:"penalty" mapstructure:"penalty"`
}

type ScannerConfig struct {
	StopTimeout     time.Duration `json:"stop_timeout" yaml:"stop_timeout" mapstructure:"stop_timeout"`
	StartTimeout    time.Duration `json:"start_timeout" yaml:"start_timeout" mapstructure:"start_timeout"`
	MaxStartRetries int           `json:"max_start_retries" yaml:"max_start_retries" mapstructure:"max_start_retries"`
	RetryBaseDelay  time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

type EventsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit" mapstructure:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Target: TargetConfig{
			Name: "Unknown Device",
			Type: "Unknown",
		},
		Signal: SignalConfig{
			SampleWindow:     12,
			TxPowerAt1m:      -59,
			PathLossExponent: 2.8,
		},
		Monitor: MonitorConfig{
			DistanceThresholdM:  2.0,
			GracePeriod:         30 * time.Second,
			LockLoop:            LockLoopConfig{Threshold: 3, Window: 60 * time.Second, Penalty: 120 * time.Second},
			StaleScanTimeout:    120 * time.Second,
			StuckHandlerTimeout: 60 * time.Second,
			WatchdogInterval:    2 * time.Second,
			LockPollInterval:    2 * time.Second,
			EventBuffer:         256,
		},
		Scanner: ScannerConfig{
			StopTimeout:     5 * time.Second,
			StartTimeout:    5 * time.Second,
			MaxStartRetries: 5,
			RetryBaseDelay:  2 * time.Second,
		},
		Events: EventsConfig{StoreLimit: 500},
	}
}

// TargetAddress picks the address to monitor: the MAC when BD_ADDR mode
// is on, the UUID otherwise. Comparison elsewhere is case-insensitive,
// so the address is normalized to uppercase here.
func (c *Config) TargetAddress() string {
	addr := c.Target.UUID
	if c.Target.UseBDAddr {
		addr = c.Target.MAC
	}
	return strings.ToUpper(strings.TrimSpace(addr))
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Target.Name == "" {
		cfg.Target.Name = def.Target.Name
	}
	if cfg.Target.Type == "" {
		cfg.Target.Type = def.Target.Type
	}
	if cfg.Signal.SampleWindow <= 0 {
		cfg.Signal.SampleWindow = def.Signal.SampleWindow
	}
	if cfg.Signal.TxPowerAt1m == 0 {
		cfg.Signal.TxPowerAt1m = def.Signal.TxPowerAt1m
	}
	if cfg.Signal.PathLossExponent <= 0 {
		cfg.Signal.PathLossExponent = def.Signal.PathLossExponent
	}
	if cfg.Monitor.DistanceThresholdM <= 0 {
		cfg.Monitor.DistanceThresholdM = def.Monitor.DistanceThresholdM
	}
	if cfg.Monitor.GracePeriod <= 0 {
		cfg.Monitor.GracePeriod = def.Monitor.GracePeriod
	}
	if cfg.Monitor.LockLoop.Threshold <= 0 {
		cfg.Monitor.LockLoop.Threshold = def.Monitor.LockLoop.Threshold
	}
	if cfg.Monitor.LockLoop.Window <= 0 {
		cfg.Monitor.LockLoop.Window = def.Monitor.LockLoop.Window
	}
	if cfg.Monitor.LockLoop.Penalty <= 0 {
		cfg.Monitor.LockLoop.Penalty = def.Monitor.LockLoop.Penalty
	}
	if cfg.Monitor.StaleScanTimeout <= 0 {
		cfg.Monitor.StaleScanTimeout = def.Monitor.StaleScanTimeout
	}
	if cfg.Monitor.StuckHandlerTimeout <= 0 {
		cfg.Monitor.StuckHandlerTimeout = def.Monitor.StuckHandlerTimeout
	}
	if cfg.Monitor.WatchdogInterval <= 0 {
		cfg.Monitor.WatchdogInterval = def.Monitor.WatchdogInterval
	}
	if cfg.Monitor.LockPollInterval <= 0 {
		cfg.Monitor.LockPollInterval = def.Monitor.LockPollInterval
	}
	if cfg.Monitor.EventBuffer <= 0 {
		cfg.Monitor.EventBuffer = def.Monitor.EventBuffer
	}
	if cfg.Scanner.StopTimeout <= 0 {
		cfg.Scanner.StopTimeout = def.Scanner.StopTimeout
	}
	if cfg.Scanner.StartTimeout <= 0 {
		cfg.Scanner.StartTimeout = def.Scanner.StartTimeout
	}
	if cfg.Scanner.MaxStartRetries <= 0 {
		cfg.Scanner.MaxStartRetries = def.Scanner.MaxStartRetries
	}
	if cfg.Scanner.RetryBaseDelay <= 0 {
		cfg.Scanner.RetryBaseDelay = def.Scanner.RetryBaseDelay
	}
	if cfg.Events.StoreLimit <= 0 {
		cfg.Events.StoreLimit = def.Events.StoreLimit
	}
}

// ErrNoTarget means the config has no target address. Commands that do
// not need one, like scan, treat it as non-fatal.
var ErrNoTarget = errors.New("target.mac or target.uuid is required")

func Validate(cfg *Config) error {
	if cfg.TargetAddress() == "" {
		return ErrNoTarget
	}
	if cfg.Signal.SampleWindow < 1 {
		return errors.New("signal.sample_window must be >= 1")
	}
	if cfg.Signal.TxPowerAt1m >= 0 {
		return fmt.Errorf("signal.tx_power_at_1m must be negative dBm, got %d", cfg.Signal.TxPowerAt1m)
	}
	if cfg.Signal.PathLossExponent <= 0 {
		return errors.New("signal.path_loss_exponent must be > 0")
	}
	if cfg.Monitor.DistanceThresholdM <= 0 {
		return errors.New("monitor.distance_threshold_m must be > 0")
	}
	if cfg.Monitor.LockLoop.Threshold < 2 {
		return errors.New("monitor.lock_loop.threshold must be >= 2")
	}
	if cfg.Scanner.MaxStartRetries < 1 {
		return errors.New("scanner.max_start_retries must be >= 1")
	}
	return nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
