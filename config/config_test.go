package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/das/sampling"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dagrid.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Grid.Builder() != grid.DefaultBuilderConfig() {
		t.Fatalf("grid = %+v, want builder defaults", cfg.Grid)
	}
	p, err := cfg.Sampling.SamplingPolicy()
	if err != nil || p != sampling.PerColumn(2) {
		t.Fatalf("policy = %v, %v", p, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{"chunk too large", func(c *Config) { c.Grid.ChunkSize = 40 }},
		{"rows not pow2", func(c *Config) { c.Grid.MaxRows = 100 }},
		{"unknown policy", func(c *Config) { c.Sampling.Policy = "random" }},
		{"zero count", func(c *Config) { c.Sampling.Count = 0 }},
		{"no setup", func(c *Config) { c.KZG.InsecureSecret = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mod(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", tt.name, err)
		}
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
[grid]
chunk_size = 4
min_cells = 16
allow_empty = true

[sampling]
policy = "per-row"
count = 8

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.ChunkSize != 4 || cfg.Grid.MinCells != 16 || !cfg.Grid.AllowEmpty {
		t.Fatalf("grid = %+v", cfg.Grid)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Grid.MaxRows != grid.DefaultBuilderConfig().MaxRows {
		t.Fatalf("max_rows = %d, want default", cfg.Grid.MaxRows)
	}
	if cfg.KZG.InsecureSecret != 42 {
		t.Fatalf("insecure_secret = %d, want default 42", cfg.KZG.InsecureSecret)
	}
	p, _ := cfg.Sampling.SamplingPolicy()
	if p != sampling.PerRow(8) {
		t.Fatalf("policy = %v, want per-row:8", p)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log = %+v", cfg.Log)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeFile(t, `
[grid]
chunk_size = 4
max_colums = 8
`)
	if _, err := Load(path); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
	if _, err := Load(writeFile(t, "[grid\nchunk_size = 4")); err == nil {
		t.Fatal("Load of malformed TOML succeeded")
	}
	path := writeFile(t, "[grid]\nchunk_size = 0\n")
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := Default()
	cfg.Grid.ChunkSize = 16
	cfg.Sampling = SamplingConfig{Policy: "total", Count: 64}
	path := filepath.Join(t.TempDir(), "out.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestSaveErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.toml")
	if err := Save(path, Default()); err == nil {
		t.Fatal("Save into a missing directory succeeded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("stat: %v, want not exist", err)
	}
}
