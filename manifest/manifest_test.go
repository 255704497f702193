package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "scripts"
version = "0.1.0"

[limits]
frame-depth = 512
stack-size = 1024

[cache]
enabled = true
path = ".lust/cache.db"

[trace]
instructions = true
`
	if err := os.WriteFile(filepath.Join(dir, "lust.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "scripts" {
		t.Errorf("project name = %q, want scripts", m.Project.Name)
	}
	if m.Limits.FrameDepth != 512 {
		t.Errorf("frame-depth = %d, want 512", m.Limits.FrameDepth)
	}
	if m.Limits.StackSize != 1024 {
		t.Errorf("stack-size = %d, want 1024", m.Limits.StackSize)
	}
	if !m.Cache.Enabled {
		t.Error("cache enabled = false, want true")
	}
	if !m.Trace.Instructions {
		t.Error("trace instructions = false, want true")
	}
	if m.Dir == "" {
		t.Error("Dir should be set at load time")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[project]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "lust.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Limits.FrameDepth != 256 {
		t.Errorf("default frame-depth = %d, want 256", m.Limits.FrameDepth)
	}
	if m.Limits.StackSize != 64 {
		t.Errorf("default stack-size = %d, want 64", m.Limits.StackSize)
	}
	if m.Cache.Enabled {
		t.Error("cache should default to disabled")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[project]
name = "found-project"
`
	if err := os.WriteFile(filepath.Join(dir, "lust.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Should find the manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no lust.toml exists")
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if m.Limits.FrameDepth != 256 {
		t.Errorf("default frame-depth = %d, want 256", m.Limits.FrameDepth)
	}
	if m.CachePath() != "" {
		t.Errorf("default cache path = %q, want empty", m.CachePath())
	}
}

func TestCachePath(t *testing.T) {
	m := &Manifest{Dir: "/app"}
	m.Cache.Path = ".lust/cache.db"
	if got := m.CachePath(); got != filepath.Join("/app", ".lust/cache.db") {
		t.Errorf("CachePath = %q", got)
	}

	m.Cache.Path = "/var/cache/lust.db"
	if got := m.CachePath(); got != "/var/cache/lust.db" {
		t.Errorf("Absolute CachePath = %q", got)
	}
}
