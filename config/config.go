// Package config loads the allocator's runtime tunables from a HuJSON
// (JSON with comments and trailing commas) file, for human-editable,
// annotated configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

// Tunables holds the allocator's runtime-settable knobs.
type Tunables struct {
	// ResizeWindow is the contention-accounting window (default 1s).
	ResizeWindow time.Duration `json:"resize_window"`
	// ResizeThreshold is the number of contended depot acquisitions
	// within ResizeWindow that triggers a magazine-size bump (default 1).
	ResizeThreshold uint32 `json:"resize_threshold"`
	// MinMagazine and MaxMagazine bound the depot's magazine capacity.
	MinMagazine uint32 `json:"min_magazine"`
	MaxMagazine uint32 `json:"max_magazine"`
	// ObjectCutoff divides the embedded (small-object) layout from the
	// external bufctl layout.
	ObjectCutoff uintptr `json:"object_cutoff"`
	// DefaultSlotsPerSlab sizes a bufctl-mode slab's import amount when
	// the cache is not quantum-cache flagged.
	DefaultSlotsPerSlab uint32 `json:"default_slots_per_slab"`
}

// DefaultTunables returns the documented baseline tunables.
func DefaultTunables() Tunables {
	return Tunables{
		ResizeWindow:        time.Second,
		ResizeThreshold:     1,
		MinMagazine:         1,
		MaxMagazine:         64,
		ObjectCutoff:        256,
		DefaultSlotsPerSlab: 64,
	}
}

// LoadTunables reads a HuJSON file at path and overlays its fields onto
// DefaultTunables. A zero-valued field in the file is left at its
// default (use 0/"" to mean "don't override"). resize_window may be given
// as a duration string such as "2s" or as integer nanoseconds. An empty
// path returns the defaults unchanged.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return Tunables{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Tunables{}, fmt.Errorf("config: invalid HuJSON in %s: %w", path, err)
	}
	var overlay struct {
		Tunables
		ResizeWindow json.RawMessage `json:"resize_window"` // "2s" or nanoseconds
	}
	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Tunables{}, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
	}
	var window string
	if json.Unmarshal(overlay.ResizeWindow, &window) == nil && window != "" {
		if overlay.Tunables.ResizeWindow, err = time.ParseDuration(window); err != nil {
			return Tunables{}, fmt.Errorf("config: invalid resize_window in %s: %w", path, err)
		}
	} else if len(overlay.ResizeWindow) > 0 {
		if err := json.Unmarshal(overlay.ResizeWindow, &overlay.Tunables.ResizeWindow); err != nil {
			return Tunables{}, fmt.Errorf("config: invalid JSON in %s: %w", path, err)
		}
	}
	t.overlay(overlay.Tunables)
	if err := t.Validate(); err != nil {
		return Tunables{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return t, nil
}

func (t *Tunables) overlay(o Tunables) {
	if o.ResizeWindow != 0 {
		t.ResizeWindow = o.ResizeWindow
	}
	if o.ResizeThreshold != 0 {
		t.ResizeThreshold = o.ResizeThreshold
	}
	if o.MinMagazine != 0 {
		t.MinMagazine = o.MinMagazine
	}
	if o.MaxMagazine != 0 {
		t.MaxMagazine = o.MaxMagazine
	}
	if o.ObjectCutoff != 0 {
		t.ObjectCutoff = o.ObjectCutoff
	}
	if o.DefaultSlotsPerSlab != 0 {
		t.DefaultSlotsPerSlab = o.DefaultSlotsPerSlab
	}
}

// Validate reports an error if the tunables are internally inconsistent.
func (t Tunables) Validate() error {
	if t.MinMagazine == 0 {
		return fmt.Errorf("min_magazine must be > 0")
	}
	if t.MaxMagazine < t.MinMagazine {
		return fmt.Errorf("max_magazine (%d) must be >= min_magazine (%d)", t.MaxMagazine, t.MinMagazine)
	}
	if t.ResizeThreshold == 0 {
		return fmt.Errorf("resize_threshold must be > 0")
	}
	return nil
}

// Format renders t as indented JSON, for `slabbench stats` to print.
func Format(t Tunables) (string, error) {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
