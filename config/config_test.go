package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTunables_EmptyPathReturnsDefaults(t *testing.T) {
	got, err := LoadTunables("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != DefaultTunables() {
		t.Fatalf("got %+v, want defaults %+v", got, DefaultTunables())
	}
}

func TestLoadTunables_OverlaysHuJSONComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.hujson")
	body := `{
  // bump the resize window from the default 1s; prod sees bursty contention
  "resize_window": "2s",
  "max_magazine": 128, // allow deeper per-CPU caching under load
}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadTunables(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ResizeWindow != 2*time.Second {
		t.Fatalf("ResizeWindow = %v, want 2s", got.ResizeWindow)
	}
	if got.MaxMagazine != 128 {
		t.Fatalf("MaxMagazine = %d, want 128", got.MaxMagazine)
	}
	// Untouched fields keep their defaults.
	if got.MinMagazine != DefaultTunables().MinMagazine {
		t.Fatalf("MinMagazine should be untouched default")
	}
}

func TestLoadTunables_RejectsInconsistentValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.hujson")
	body := `{"min_magazine": 32, "max_magazine": 8}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTunables(path); err == nil {
		t.Fatal("expected validation error for max < min magazine")
	}
}

func TestLoadTunables_MissingFile(t *testing.T) {
	if _, err := LoadTunables(filepath.Join(t.TempDir(), "nope.hujson")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
