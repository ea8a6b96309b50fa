package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cascadio.yaml")
	body := `
tolerance:
  linear: 0.05
brep:
  include: true
  types: [cylinder, plane]
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tolerance.Linear != 0.05 {
		t.Errorf("linear tolerance %v", cfg.Tolerance.Linear)
	}
	// Unset keys keep their defaults.
	if cfg.Tolerance.Angular != 0.5 || !cfg.Export.MergePrimitives {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.Brep.Include || len(cfg.Brep.Types) != 2 {
		t.Errorf("brep section %+v", cfg.Brep)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level %q", cfg.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/cascadio.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}
