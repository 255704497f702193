// Package manifest handles lust.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a lust.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Limits  Limits      `toml:"limits"`
	Cache   CacheConfig `toml:"cache"`
	Trace   TraceConfig `toml:"trace"`

	// Dir is the directory containing the lust.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Limits bounds interpreter resources.
type Limits struct {
	// FrameDepth caps the call-frame stack; recursion past it faults.
	FrameDepth int `toml:"frame-depth"`
	// StackSize is the initial operand stack allocation in slots.
	StackSize int `toml:"stack-size"`
}

// CacheConfig configures the compiled-chunk cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// TraceConfig configures execution tracing.
type TraceConfig struct {
	Instructions bool `toml:"instructions"`
}

// Load parses a lust.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "lust.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a lust.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "lust.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns a manifest with default settings, for runs with no
// lust.toml in scope.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Limits.FrameDepth <= 0 {
		m.Limits.FrameDepth = 256
	}
	if m.Limits.StackSize <= 0 {
		m.Limits.StackSize = 64
	}
}

// CachePath returns the absolute path of the cache database, or "" when
// the manifest does not configure one.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Cache.Path) || m.Dir == "" {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
