package cli

import (
	"testing"
	"time"
)

func TestDeviceCompletionCacheRoundTrip(t *testing.T) {
	t.Setenv("WIIMCTL_COMPLETION_CACHE_DIR", t.TempDir())

	now := time.Now()
	if err := storeDeviceCompletions(now, []string{"192.168.4.10", "192.168.4.11"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	addrs, ok := cachedDeviceCompletions(now.Add(time.Second))
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(addrs) != 2 || addrs[0] != "192.168.4.10" {
		t.Fatalf("unexpected addrs: %v", addrs)
	}
}

func TestDeviceCompletionCacheExpires(t *testing.T) {
	t.Setenv("WIIMCTL_COMPLETION_CACHE_DIR", t.TempDir())

	now := time.Now()
	if err := storeDeviceCompletions(now, []string{"192.168.4.10"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	if _, ok := cachedDeviceCompletions(now.Add(deviceCompletionCacheTTL + time.Second)); ok {
		t.Fatalf("expected stale cache to miss")
	}
}

func TestDeviceCompletionCacheRejectsEmpty(t *testing.T) {
	t.Setenv("WIIMCTL_COMPLETION_CACHE_DIR", t.TempDir())

	if err := storeDeviceCompletions(time.Now(), nil); err == nil {
		t.Fatalf("expected error for empty address list")
	}
	if _, ok := cachedDeviceCompletions(time.Now()); ok {
		t.Fatalf("expected miss with no cache file")
	}
}
