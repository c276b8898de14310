// Package config loads the isosurface pipeline settings from TOML.
//
// Every field is optional. Get* accessors supply the default for fields a
// file leaves out, so partial configs are safe.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Defaults.
const (
	DefaultResolution    = 4.0
	DefaultMargin        = 2.0
	DefaultCutoff        = 0.05
	DefaultSigmaScale    = 0.5
	DefaultRadius        = 1.0
	DefaultMaxPoints     = 1 << 24
	DefaultKernel        = "march"
	DefaultWorkers       = 4
	DefaultPrecalculate  = true
	DefaultEvalTimeoutMs = 5000
)

// maxFileSize bounds the config files we are willing to read.
const maxFileSize = 1 << 20

// Kernels lists the accepted kernel names.
var Kernels = []string{"march", "sdfx"}

// Config is the root configuration.
type Config struct {
	// Lattice points per unit length for readers that build their own grid.
	Resolution *float64 `toml:"resolution,omitempty"`
	// Padding added around the atoms, on top of the largest atom radius.
	Margin *float64 `toml:"margin,omitempty"`
	// Default isosurface threshold for volumetric surfaces.
	Cutoff *float64 `toml:"cutoff,omitempty"`
	// Gaussian width of each atom's density, as a fraction of its radius.
	SigmaScale *float64 `toml:"sigma_scale,omitempty"`
	// Radius for atoms that do not carry one.
	DefaultRadius *float64 `toml:"default_radius,omitempty"`
	// Upper bound on lattice points per surface.
	MaxPoints *int `toml:"max_points,omitempty"`
	// Extraction backend: "march" or "sdfx".
	Kernel *string `toml:"kernel,omitempty"`
	// Surfaces computed in parallel.
	Workers *int `toml:"workers,omitempty"`
	// Sample the whole lattice before extraction.
	Precalculate *bool `toml:"precalculate,omitempty"`
	// Script evaluation timeout.
	EvalTimeoutMs *int `toml:"eval_timeout_ms,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Default returns a config with every field set to its default.
func Default() *Config {
	return &Config{
		Resolution:    ptrFloat64(DefaultResolution),
		Margin:        ptrFloat64(DefaultMargin),
		Cutoff:        ptrFloat64(DefaultCutoff),
		SigmaScale:    ptrFloat64(DefaultSigmaScale),
		DefaultRadius: ptrFloat64(DefaultRadius),
		MaxPoints:     ptrInt(DefaultMaxPoints),
		Kernel:        ptrString(DefaultKernel),
		Workers:       ptrInt(DefaultWorkers),
		Precalculate:  ptrBool(DefaultPrecalculate),
		EvalTimeoutMs: ptrInt(DefaultEvalTimeoutMs),
	}
}

// Load reads a TOML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return nil, fmt.Errorf("config file must have .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML config data.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Encode renders the config as TOML, omitting unset fields.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func positive(name string, v *float64) error {
	if v != nil && (!(*v > 0) || math.IsInf(*v, 0)) {
		return fmt.Errorf("%s must be positive and finite, got %g", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"resolution", c.Resolution},
		{"sigma_scale", c.SigmaScale},
		{"default_radius", c.DefaultRadius},
	} {
		if err := positive(f.name, f.v); err != nil {
			return err
		}
	}
	if c.Margin != nil && (!(*c.Margin >= 0) || math.IsInf(*c.Margin, 0)) {
		return fmt.Errorf("margin must be non-negative and finite, got %g", *c.Margin)
	}
	if c.Cutoff != nil && (math.IsNaN(*c.Cutoff) || math.IsInf(*c.Cutoff, 0)) {
		return fmt.Errorf("cutoff must be finite, got %g", *c.Cutoff)
	}
	if c.MaxPoints != nil && *c.MaxPoints < 1 {
		return fmt.Errorf("max_points must be at least 1, got %d", *c.MaxPoints)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.EvalTimeoutMs != nil && *c.EvalTimeoutMs < 0 {
		return fmt.Errorf("eval_timeout_ms must not be negative, got %d", *c.EvalTimeoutMs)
	}
	if c.Kernel != nil {
		known := false
		for _, k := range Kernels {
			known = known || k == *c.Kernel
		}
		if !known {
			return fmt.Errorf("unknown kernel %q (want one of %v)", *c.Kernel, Kernels)
		}
	}
	return nil
}

// GetResolution returns the lattice resolution.
func (c *Config) GetResolution() float64 {
	if c.Resolution == nil {
		return DefaultResolution
	}
	return *c.Resolution
}

// GetMargin returns the padding around the atoms.
func (c *Config) GetMargin() float64 {
	if c.Margin == nil {
		return DefaultMargin
	}
	return *c.Margin
}

// GetCutoff returns the default volumetric threshold.
func (c *Config) GetCutoff() float64 {
	if c.Cutoff == nil {
		return DefaultCutoff
	}
	return *c.Cutoff
}

// GetSigmaScale returns the Gaussian width per unit radius.
func (c *Config) GetSigmaScale() float64 {
	if c.SigmaScale == nil {
		return DefaultSigmaScale
	}
	return *c.SigmaScale
}

// GetDefaultRadius returns the radius for atoms without one.
func (c *Config) GetDefaultRadius() float64 {
	if c.DefaultRadius == nil {
		return DefaultRadius
	}
	return *c.DefaultRadius
}

// GetMaxPoints returns the lattice size limit.
func (c *Config) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return DefaultMaxPoints
	}
	return *c.MaxPoints
}

// GetKernel returns the extraction backend name.
func (c *Config) GetKernel() string {
	if c.Kernel == nil {
		return DefaultKernel
	}
	return *c.Kernel
}

// GetWorkers returns the parallel surface limit.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetPrecalculate reports whether volumes are sampled before extraction.
func (c *Config) GetPrecalculate() bool {
	if c.Precalculate == nil {
		return DefaultPrecalculate
	}
	return *c.Precalculate
}

// GetEvalTimeoutMs returns the script evaluation timeout in milliseconds.
func (c *Config) GetEvalTimeoutMs() int {
	if c.EvalTimeoutMs == nil {
		return DefaultEvalTimeoutMs
	}
	return *c.EvalTimeoutMs
}
