package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the per-directory config file name.
	ConfigFileName = ".brios.yaml"
	// GlobalConfigDir is the directory for the global config, under $HOME.
	GlobalConfigDir = ".config/brios"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads the config file at path, layers BRIOS_* environment
// variables on top and fills in defaults. An empty path loads defaults
// and environment only, so the tool works with no config file at all
// as long as a target address is set in the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRIOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find locates the config file: explicit path first, then .brios.yaml in
// the working directory, then ~/.config/brios/config.yaml. Returns an
// empty string when none exists, which is not an error.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, ConfigFileName)
		if _, err := os.Stat(local); err == nil {
			return local, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// bindEnvKeys registers every leaf key so AutomaticEnv sees variables
// even when the key is absent from the config file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"log.level", "log.format", "log.file",
		"target.name", "target.type", "target.mac", "target.uuid", "target.use_bdaddr",
		"signal.sample_window", "signal.tx_power_at_1m", "signal.path_loss_exponent",
		"monitor.distance_threshold_m", "monitor.grace_period",
		"monitor.lock_loop.threshold", "monitor.lock_loop.window", "monitor.lock_loop.penalty",
		"monitor.stale_scan_timeout", "monitor.stuck_handler_timeout",
		"monitor.watchdog_interval", "monitor.lock_poll_interval", "monitor.event_buffer",
		"scanner.stop_timeout", "scanner.start_timeout",
		"scanner.max_start_retries", "scanner.retry_base_delay",
		"events.store_limit",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
