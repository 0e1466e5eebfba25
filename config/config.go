// Package config holds dagrid configuration: grid limits, the sampling
// policy, the commitment setup and logging. Files are TOML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/eth2030/dagrid/das/grid"
	"github.com/eth2030/dagrid/das/sampling"
	"github.com/eth2030/dagrid/log"
)

var (
	ErrInvalid    = errors.New("config: invalid configuration")
	ErrUnknownKey = errors.New("config: unknown key")
)

// Config is the full configuration.
type Config struct {
	Grid     GridConfig     `toml:"grid"`
	Sampling SamplingConfig `toml:"sampling"`
	KZG      KZGConfig      `toml:"kzg"`
	Log      LogConfig      `toml:"log"`
}

// GridConfig bounds grid construction.
type GridConfig struct {
	// ChunkSize is the number of payload bytes per cell, at most 31.
	ChunkSize int `toml:"chunk_size"`
	// MinCells is the smallest grid built, padding included.
	MinCells int `toml:"min_cells"`
	MaxRows  int `toml:"max_rows"`
	MaxCols  int `toml:"max_cols"`
	// AllowEmpty accepts blocks without extrinsics, producing an
	// all-padding grid. When false such blocks are rejected.
	AllowEmpty bool `toml:"allow_empty"`
}

// SamplingConfig is the sampling policy. The count is a protocol
// parameter and has no built-in threshold.
type SamplingConfig struct {
	// Policy is one of per-column, per-row or total.
	Policy string `toml:"policy"`
	Count  int    `toml:"count"`
}

// KZGConfig selects the commitment setup. SetupFile names a serialized
// gnark-crypto BLS12-381 SRS. Without it an SRS is derived from
// InsecureSecret, which is only suitable for tests and local simulation.
type KZGConfig struct {
	SetupFile      string `toml:"setup_file"`
	InsecureSecret uint64 `toml:"insecure_secret"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	b := grid.DefaultBuilderConfig()
	return &Config{
		Grid: GridConfig{
			ChunkSize:  b.ChunkSize,
			MinCells:   b.MinCells,
			MaxRows:    b.MaxRows,
			MaxCols:    b.MaxCols,
			AllowEmpty: b.AllowEmpty,
		},
		Sampling: SamplingConfig{
			Policy: "per-column",
			Count:  2,
		},
		KZG: KZGConfig{
			InsecureSecret: 42,
		},
		Log: LogConfig{
			Level:  "info",
			Format: log.FormatText,
		},
	}
}

// Builder converts the grid section to builder parameters.
func (g GridConfig) Builder() grid.BuilderConfig {
	return grid.BuilderConfig{
		ChunkSize:  g.ChunkSize,
		MinCells:   g.MinCells,
		MaxRows:    g.MaxRows,
		MaxCols:    g.MaxCols,
		AllowEmpty: g.AllowEmpty,
	}
}

// SamplingPolicy parses the sampling section.
func (s SamplingConfig) SamplingPolicy() (sampling.Policy, error) {
	return sampling.ParsePolicy(s.Policy, s.Count)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Grid.Builder().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := c.Sampling.SamplingPolicy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.KZG.SetupFile == "" && c.KZG.InsecureSecret == 0 {
		return fmt.Errorf("%w: kzg needs setup_file or insecure_secret", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Log.Format {
	case log.FormatJSON, log.FormatText:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Load reads a TOML file over the defaults and validates the result. Keys
// that match no field are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownKey, path, und)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cfg.Encode(f); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}
