package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Index.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", cfg.Index.TopK)
	}
	if cfg.Index.ChunkSize != 512 || cfg.Index.ChunkOverlap != 50 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Index)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	path := filepath.Join(dir, "rageddy.yaml")
	content := fmt.Sprintf(`
db_path: %s/x.db
archive:
  path: %s/docs
  mask: "**/*.md"
index:
  top_k: 7
`, dir, dir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Archive.Path != dir+"/docs" {
		t.Errorf("archive path not loaded: %s", cfg.Archive.Path)
	}
	if cfg.Archive.Mask != "**/*.md" {
		t.Errorf("mask not loaded: %s", cfg.Archive.Mask)
	}
	if cfg.Index.TopK != 7 {
		t.Errorf("top_k not loaded: %d", cfg.Index.TopK)
	}
	// Untouched fields keep their defaults.
	if cfg.Model.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("base_url default lost: %s", cfg.Model.BaseURL)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rageddy.yaml")
	content := `
model:
  base_url: "not a url"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for bad base_url")
	}
}

func TestLoadCreatesDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// A fresh install gets its folders without manual setup.
	for _, dir := range []string{cfg.Archive.Path, filepath.Dir(cfg.DBPath), cfg.Model.ModelsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %s to be a directory", dir)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("RAGEDDY_DB_PATH", filepath.Join(dir, "db.sqlite"))
	t.Setenv("RAGEDDY_TOP_K", "9")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DBPath != filepath.Join(dir, "db.sqlite") {
		t.Errorf("env db path not applied: %s", cfg.DBPath)
	}
	if cfg.Index.TopK != 9 {
		t.Errorf("env top_k not applied: %d", cfg.Index.TopK)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Index.TopK = 11

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Index.TopK != 11 {
		t.Errorf("round trip lost top_k: %d", loaded.Index.TopK)
	}
}
