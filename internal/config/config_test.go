package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WIIMCTL_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("WIIMCTL_DEVICE", "")
	t.Setenv("WIIMCTL_TIMEOUT_SECS", "")
	t.Setenv("WIIMCTL_POLL_INTERVAL_SECS", "")
	t.Setenv("WIIMCTL_STALENESS_SECS", "")
	t.Setenv("WIIMCTL_LISTEN_ADDR", "")

	cfg := Load()
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("timeout: %s", cfg.Timeout)
	}
	if cfg.PollInterval != 4*time.Second {
		t.Fatalf("poll interval: %s", cfg.PollInterval)
	}
	if cfg.Staleness != 10*time.Second {
		t.Fatalf("staleness: %s", cfg.Staleness)
	}
	if cfg.ListenAddr != ":0" {
		t.Fatalf("listen addr: %q", cfg.ListenAddr)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
default_device = "10.0.0.9"
staleness_secs = 30
poll_interval_secs = 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WIIMCTL_CONFIG", path)
	t.Setenv("WIIMCTL_DEVICE", "")
	t.Setenv("WIIMCTL_TIMEOUT_SECS", "")
	t.Setenv("WIIMCTL_POLL_INTERVAL_SECS", "")
	t.Setenv("WIIMCTL_LISTEN_ADDR", "")
	t.Setenv("WIIMCTL_STALENESS_SECS", "45")

	cfg := Load()
	if cfg.DefaultDevice != "10.0.0.9" {
		t.Fatalf("device: %q", cfg.DefaultDevice)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval: %s", cfg.PollInterval)
	}
	// Env wins over the file.
	if cfg.Staleness != 45*time.Second {
		t.Fatalf("staleness: %s", cfg.Staleness)
	}
}
