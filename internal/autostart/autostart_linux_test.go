//go:build linux

package autostart

import (
	"os"
	"strings"
	"testing"
)

func TestEnableDisableRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	enabled, err := Enabled()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if enabled {
		t.Fatalf("expected disabled in fresh config dir")
	}

	if err := Enable("/opt/sunny/sunny-manager"); err != nil {
		t.Fatalf("enable: %v", err)
	}

	enabled, err = Enabled()
	if err != nil || !enabled {
		t.Fatalf("expected enabled, got %v (err=%v)", enabled, err)
	}

	path, err := entryPath()
	if err != nil {
		t.Fatalf("entry path: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !strings.Contains(string(raw), "sunny-manager") {
		t.Fatalf("entry does not reference the executable: %s", raw)
	}

	if err := Disable(); err != nil {
		t.Fatalf("disable: %v", err)
	}
	enabled, err = Enabled()
	if err != nil || enabled {
		t.Fatalf("expected disabled after Disable, got %v (err=%v)", enabled, err)
	}

	// Disabling twice is fine.
	if err := Disable(); err != nil {
		t.Fatalf("second disable: %v", err)
	}
}
