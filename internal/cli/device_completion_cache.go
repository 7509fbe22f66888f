package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Shell completion for device addresses runs a live SSDP search, which takes
// seconds; the results are cached briefly so repeated tab presses stay fast.
const deviceCompletionCacheTTL = 2 * time.Minute

type deviceCompletionCacheFile struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Addrs     []string  `json:"addrs"`
}

func readDeviceCompletionCacheFile() (deviceCompletionCacheFile, bool) {
	path, err := deviceCompletionCachePath()
	if err != nil {
		return deviceCompletionCacheFile{}, false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return deviceCompletionCacheFile{}, false
	}
	// Avoid large reads if the cache ever gets corrupted.
	if len(raw) > 64*1024 {
		return deviceCompletionCacheFile{}, false
	}

	var cache deviceCompletionCacheFile
	if err := json.Unmarshal(raw, &cache); err != nil {
		return deviceCompletionCacheFile{}, false
	}
	if cache.UpdatedAt.IsZero() || len(cache.Addrs) == 0 {
		return deviceCompletionCacheFile{}, false
	}

	return cache, true
}

func cachedDeviceCompletions(now time.Time) ([]string, bool) {
	cache, ok := readDeviceCompletionCacheFile()
	if !ok {
		return nil, false
	}
	if now.Sub(cache.UpdatedAt) > deviceCompletionCacheTTL {
		return nil, false
	}
	return cache.Addrs, true
}

func storeDeviceCompletions(now time.Time, addrs []string) error {
	if len(addrs) == 0 {
		return errors.New("no addresses")
	}
	path, err := deviceCompletionCachePath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	cache := deviceCompletionCacheFile{
		UpdatedAt: now,
		Addrs:     addrs,
	}
	raw, err := json.Marshal(cache)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "device-completions-*.json")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func deviceCompletionCachePath() (string, error) {
	if override := os.Getenv("WIIMCTL_COMPLETION_CACHE_DIR"); override != "" {
		return filepath.Join(override, "wiimctl", "device-completions.json"), nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wiimctl", "device-completions.json"), nil
}
