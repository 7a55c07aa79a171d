// Package config loads octasphere settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/chazu/octasphere/pkg/graph"
	"github.com/chazu/octasphere/pkg/kernel"
	"github.com/chazu/octasphere/pkg/lod"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration.
type Config struct {
	Geometry GeometryConfig `yaml:"geometry"`
	LOD      LODConfig      `yaml:"lod"`
	Path     PathConfig     `yaml:"path"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// GeometryConfig controls the sphere itself.
type GeometryConfig struct {
	Radius       float64 `yaml:"radius"`
	SnapDecimals int     `yaml:"snap_decimals"`

	// PathLift is how far above the surface the path polyline is drawn.
	PathLift float64 `yaml:"path_lift"`
}

// LODConfig controls per-region depth selection.
type LODConfig struct {
	Thresholds   []lod.Threshold `yaml:"thresholds"`
	FarDepth     int             `yaml:"far_depth"`
	MaxDepth     int             `yaml:"max_depth"`
	InitialDepth int             `yaml:"initial_depth"`
	Viewpoint    [3]float64      `yaml:"viewpoint"`
}

// PathConfig controls path preview memoization.
type PathConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// EngineConfig controls scenario script evaluation.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the stock configuration.
func Default() Config {
	p := lod.DefaultPolicy()
	return Config{
		Geometry: GeometryConfig{
			Radius:       kernel.DefaultRadius,
			SnapDecimals: graph.DefaultSnapDecimals,
			PathLift:     0.02,
		},
		LOD: LODConfig{
			Thresholds:   p.Thresholds,
			FarDepth:     p.Far,
			MaxDepth:     6,
			InitialDepth: 1,
			Viewpoint:    [3]float64{5, 5, 5},
		},
		Path: PathConfig{
			CacheSize: 256,
		},
		Engine: EngineConfig{
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	envErrs := applyEnv(&cfg)
	if len(envErrs) > 0 {
		// Report bad overrides alongside any other invalid settings.
		if err := cfg.Validate(); err != nil {
			envErrs = append(envErrs, err)
		}
		return cfg, fmt.Errorf("config: environment: %w", errors.Join(envErrs...))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays OCTASPHERE_* variables. Malformed values are returned
// rather than skipped; the remaining variables are still applied.
func applyEnv(cfg *Config) []error {
	var errs []error
	float := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid number %q", name, v))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", name, v))
				return
			}
			*dst = i
		}
	}

	float("OCTASPHERE_RADIUS", &cfg.Geometry.Radius)
	integer("OCTASPHERE_MAX_DEPTH", &cfg.LOD.MaxDepth)
	integer("OCTASPHERE_INITIAL_DEPTH", &cfg.LOD.InitialDepth)
	integer("OCTASPHERE_PATH_CACHE_SIZE", &cfg.Path.CacheSize)
	if v := os.Getenv("OCTASPHERE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return errs
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Geometry.Radius <= 0 {
		errs = append(errs, fmt.Errorf("geometry.radius must be > 0, got %v", c.Geometry.Radius))
	}
	if c.Geometry.SnapDecimals < 1 || c.Geometry.SnapDecimals > 9 {
		errs = append(errs, fmt.Errorf("geometry.snap_decimals must be in [1, 9], got %d", c.Geometry.SnapDecimals))
	}
	if c.Geometry.PathLift < 0 {
		errs = append(errs, fmt.Errorf("geometry.path_lift must be >= 0, got %v", c.Geometry.PathLift))
	}
	if err := c.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("lod: %w", err))
	}
	if err := kernel.CheckLevel(c.LOD.MaxDepth); err != nil {
		errs = append(errs, fmt.Errorf("lod.max_depth: %w", err))
	}
	if c.LOD.InitialDepth < 0 || c.LOD.InitialDepth > c.LOD.MaxDepth {
		errs = append(errs, fmt.Errorf("lod.initial_depth must be in [0, max_depth], got %d", c.LOD.InitialDepth))
	}
	if c.Path.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("path.cache_size must be >= 1, got %d", c.Path.CacheSize))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be > 0, got %v", c.Engine.Timeout))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Policy returns the LOD policy described by the config.
func (c Config) Policy() lod.Policy {
	return lod.Policy{Thresholds: c.LOD.Thresholds, Far: c.LOD.FarDepth}
}

// Quantizer returns the vertex snapping grid.
func (c Config) Quantizer() graph.Quantizer {
	return graph.NewQuantizer(c.Geometry.SnapDecimals)
}

// LogLevel parses log.level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
