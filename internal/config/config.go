// Package config loads wiimctl settings from a TOML file in the user config
// dir, with environment variable overrides. A .env file is honored for the
// env overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// DefaultDevice is the device address used when a command names none.
	DefaultDevice string
	// ListenAddr is the bind address for the push event listener.
	ListenAddr string
	// Timeout applies per transport call.
	Timeout time.Duration
	// PollInterval drives the monitor loop.
	PollInterval time.Duration
	// Staleness tunes the state synchronizer's freshness override.
	Staleness time.Duration
	// PropagationDelay is how long a join gets before verification.
	PropagationDelay time.Duration
}

type fileConfig struct {
	DefaultDevice        string `toml:"default_device"`
	ListenAddr           string `toml:"listen_addr"`
	TimeoutSecs          int    `toml:"timeout_secs"`
	PollIntervalSecs     int    `toml:"poll_interval_secs"`
	StalenessSecs        int    `toml:"staleness_secs"`
	PropagationDelaySecs int    `toml:"propagation_delay_secs"`
}

func init() {
	_ = godotenv.Load()
}

func Load() Config {
	fc := loadFileConfig()

	cfg := Config{
		DefaultDevice:    firstNonEmpty(os.Getenv("WIIMCTL_DEVICE"), fc.DefaultDevice),
		ListenAddr:       firstNonEmpty(os.Getenv("WIIMCTL_LISTEN_ADDR"), fc.ListenAddr, ":0"),
		Timeout:          10 * time.Second,
		PollInterval:     4 * time.Second,
		Staleness:        10 * time.Second,
		PropagationDelay: 5 * time.Second,
	}
	if fc.TimeoutSecs > 0 {
		cfg.Timeout = time.Duration(fc.TimeoutSecs) * time.Second
	}
	if fc.PollIntervalSecs > 0 {
		cfg.PollInterval = time.Duration(fc.PollIntervalSecs) * time.Second
	}
	if fc.StalenessSecs > 0 {
		cfg.Staleness = time.Duration(fc.StalenessSecs) * time.Second
	}
	if fc.PropagationDelaySecs > 0 {
		cfg.PropagationDelay = time.Duration(fc.PropagationDelaySecs) * time.Second
	}
	if secs := envSeconds("WIIMCTL_TIMEOUT_SECS"); secs > 0 {
		cfg.Timeout = secs
	}
	if secs := envSeconds("WIIMCTL_POLL_INTERVAL_SECS"); secs > 0 {
		cfg.PollInterval = secs
	}
	if secs := envSeconds("WIIMCTL_STALENESS_SECS"); secs > 0 {
		cfg.Staleness = secs
	}
	return cfg
}

func loadFileConfig() fileConfig {
	path := configPath()
	if path == "" {
		return fileConfig{}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fileConfig{}
	}
	return fc
}

func configPath() string {
	if p := os.Getenv("WIIMCTL_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wiimctl", "config.toml")
}

func envSeconds(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
