package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "Comparer" {
		t.Errorf("Author = %q", cfg.Author)
	}
	if cfg.Compare.MatchThreshold != 0.4 {
		t.Errorf("MatchThreshold = %v", cfg.Compare.MatchThreshold)
	}
	if cfg.Compare.SheetRenameThreshold != 0.8 {
		t.Errorf("SheetRenameThreshold = %v", cfg.Compare.SheetRenameThreshold)
	}
	if !cfg.Compare.ShowDeletedRows {
		t.Error("ShowDeletedRows default should be true")
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oodiff.yaml")
	content := "author: Reviewer\ncompare:\n  match_threshold: 0.6\noutput:\n  json: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "Reviewer" {
		t.Errorf("Author = %q", cfg.Author)
	}
	if cfg.Compare.MatchThreshold != 0.6 {
		t.Errorf("MatchThreshold = %v", cfg.Compare.MatchThreshold)
	}
	if !cfg.Output.JSON {
		t.Error("Output.JSON should be true")
	}
	// Values absent from the file keep defaults.
	if cfg.Compare.DetailThreshold != 0.15 {
		t.Errorf("DetailThreshold = %v", cfg.Compare.DetailThreshold)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for explicitly named missing config")
	}
}
