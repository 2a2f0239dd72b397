// Package config holds the TOML run configuration for bpa.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/ballpivot/pkg/meshio"
)

// ErrInvalidRadius is returned when the ball radius is not a positive
// finite number.
var ErrInvalidRadius = errors.New("radius must be a positive finite number")

// Config is one reconstruction run.
type Config struct {
	Radius        float64 `toml:"radius"`
	Input         string  `toml:"input"`        // .xyz or .ply cloud
	Script        string  `toml:"script"`       // scene script, instead of Input
	Output        string  `toml:"output"`       // mesh path; derived from the source when empty
	CloudOutput   string  `toml:"cloud_output"` // optional dump of the cloud that was meshed
	Format        string  `toml:"format"`       // stl, stl-ascii or ply
	MaxIterations int     `toml:"max_iterations"`
	LogLevel      string  `toml:"log_level"`
	Watch         bool    `toml:"watch"`
	Sample        Sample  `toml:"sample"`
}

// Sample configures surface sampling in scene scripts.
type Sample struct {
	Spacing float64 `toml:"spacing"` // default spacing for (sample ...)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Format:   string(meshio.FormatSTL),
		LogLevel: "info",
		Sample:   Sample{Spacing: 0.1},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// Validate checks the configuration before a run. A zero radius is allowed
// with a script, which may set its own.
func (c Config) Validate() error {
	switch {
	case c.Input == "" && c.Script == "":
		return errors.New("config: an input cloud or a script is required")
	case c.Input != "" && c.Script != "":
		return errors.New("config: input and script are mutually exclusive")
	}
	if math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) || c.Radius < 0 ||
		(c.Radius == 0 && c.Script == "") {
		return fmt.Errorf("config: radius %v: %w", c.Radius, ErrInvalidRadius)
	}
	if _, err := meshio.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log level %q: %w", c.LogLevel, err)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations %d is negative", c.MaxIterations)
	}
	if !(c.Sample.Spacing > 0) || math.IsInf(c.Sample.Spacing, 0) {
		return fmt.Errorf("config: sample spacing %v is not a positive finite number", c.Sample.Spacing)
	}
	return nil
}

// MeshFormat returns the parsed output format, falling back to binary STL.
func (c Config) MeshFormat() meshio.Format {
	f, err := meshio.ParseFormat(c.Format)
	if err != nil {
		return meshio.FormatSTL
	}
	return f
}

// OutputPath returns Output, or the input (or script) path with its
// extension replaced by the format's.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	src := c.Input
	if src == "" {
		src = c.Script
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + c.MeshFormat().Ext()
}

// Source returns the path whose changes trigger a rerun in watch mode.
func (c Config) Source() string {
	if c.Script != "" {
		return c.Script
	}
	return c.Input
}
