package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/OCharnyshevich/raster-world/internal/engine/terrain"
	"github.com/OCharnyshevich/raster-world/internal/engine/world"
)

// Config holds the engine configuration.
type Config struct {
	Seed           string  `json:"seed" mapstructure:"seed"`
	Fade           float64 `json:"fade" mapstructure:"fade"`
	Noise          string  `json:"noise" mapstructure:"noise"` // "simplex" or "perlin"
	Octaves        int     `json:"octaves" mapstructure:"octaves"`
	TileResolution int     `json:"tile_resolution" mapstructure:"tile_resolution"`

	WorldUpdateManhattanDistance       float64 `json:"world_update_manhattan_distance" mapstructure:"world_update_manhattan_distance"`
	MinimumReadyTilesManhattanDistance float64 `json:"minimum_ready_tiles_manhattan_distance" mapstructure:"minimum_ready_tiles_manhattan_distance"`

	Workers      int    `json:"workers" mapstructure:"workers"`
	CacheMaxCost int64  `json:"cache_max_cost" mapstructure:"cache_max_cost"` // bytes of cached tiles
	GeneratorURL string `json:"generator_url" mapstructure:"generator_url"`   // empty = in-process workers
	Listen       string `json:"listen" mapstructure:"listen"`                 // generation server address

	Elasticity       float64 `json:"elasticity" mapstructure:"elasticity"`
	CorrectionStep   float64 `json:"correction_step" mapstructure:"correction_step"`
	MaxFrameDelta    float64 `json:"max_frame_delta" mapstructure:"max_frame_delta"` // seconds
	TickRate         int     `json:"tick_rate" mapstructure:"tick_rate"`             // ticks per second
	CameraHalfExtent float64 `json:"camera_half_extent" mapstructure:"camera_half_extent"`

	LogLevel string `json:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" mapstructure:"log_file"`
	DataDir  string `json:"data_dir" mapstructure:"data_dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:                               "raster-world",
		Fade:                               1,
		Noise:                              terrain.NoiseSimplex,
		Octaves:                            1,
		TileResolution:                     64,
		WorldUpdateManhattanDistance:       64,
		MinimumReadyTilesManhattanDistance: 6,
		Workers:                            runtime.NumCPU(),
		CacheMaxCost:                       64 << 20,
		Listen:                             ":8090",
		Elasticity:                         0.5,
		CorrectionStep:                     0.1,
		MaxFrameDelta:                      1,
		TickRate:                           60,
		CameraHalfExtent:                   5,
		LogLevel:                           "info",
		DataDir:                            "data",
	}
}

// EnvPrefix prefixes environment overrides, e.g. RASTERWORLD_SEED.
const EnvPrefix = "RASTERWORLD"

// Load reads defaults, then the optional config file at path (JSON, TOML or YAML
// by extension), then RASTERWORLD_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("seed", d.Seed)
	v.SetDefault("fade", d.Fade)
	v.SetDefault("noise", d.Noise)
	v.SetDefault("octaves", d.Octaves)
	v.SetDefault("tile_resolution", d.TileResolution)
	v.SetDefault("world_update_manhattan_distance", d.WorldUpdateManhattanDistance)
	v.SetDefault("minimum_ready_tiles_manhattan_distance", d.MinimumReadyTilesManhattanDistance)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("cache_max_cost", d.CacheMaxCost)
	v.SetDefault("generator_url", d.GeneratorURL)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("elasticity", d.Elasticity)
	v.SetDefault("correction_step", d.CorrectionStep)
	v.SetDefault("max_frame_delta", d.MaxFrameDelta)
	v.SetDefault("tick_rate", d.TickRate)
	v.SetDefault("camera_half_extent", d.CameraHalfExtent)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("data_dir", d.DataDir)
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["fade"] {
		cfg.Fade = fromFile.Fade
	}
	if !explicitFlags["noise"] {
		cfg.Noise = fromFile.Noise
	}
	if !explicitFlags["octaves"] {
		cfg.Octaves = fromFile.Octaves
	}
	if !explicitFlags["tile-resolution"] {
		cfg.TileResolution = fromFile.TileResolution
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["generator-url"] {
		cfg.GeneratorURL = fromFile.GeneratorURL
	}
	if !explicitFlags["listen"] {
		cfg.Listen = fromFile.Listen
	}
	if !explicitFlags["tick-rate"] {
		cfg.TickRate = fromFile.TickRate
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["log-file"] {
		cfg.LogFile = fromFile.LogFile
	}
	if !explicitFlags["data-dir"] {
		cfg.DataDir = fromFile.DataDir
	}

	// No flags for these.
	cfg.WorldUpdateManhattanDistance = fromFile.WorldUpdateManhattanDistance
	cfg.MinimumReadyTilesManhattanDistance = fromFile.MinimumReadyTilesManhattanDistance
	cfg.CacheMaxCost = fromFile.CacheMaxCost
	cfg.Elasticity = fromFile.Elasticity
	cfg.CorrectionStep = fromFile.CorrectionStep
	cfg.MaxFrameDelta = fromFile.MaxFrameDelta
	cfg.CameraHalfExtent = fromFile.CameraHalfExtent
}

const maxOctaves = 8

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Noise != terrain.NoiseSimplex && c.Noise != terrain.NoisePerlin {
		errs = append(errs, fmt.Errorf("noise %q: want %q or %q", c.Noise, terrain.NoiseSimplex, terrain.NoisePerlin))
	}
	if c.Fade < 0 || c.Fade > 1 {
		errs = append(errs, fmt.Errorf("fade %g: want [0, 1]", c.Fade))
	}
	if c.Octaves < 1 || c.Octaves > maxOctaves {
		errs = append(errs, fmt.Errorf("octaves %d: want [1, %d]", c.Octaves, maxOctaves))
	}
	if c.TileResolution <= 0 {
		errs = append(errs, fmt.Errorf("tile_resolution %d: must be positive", c.TileResolution))
	}
	if c.WorldUpdateManhattanDistance < c.MinimumReadyTilesManhattanDistance {
		errs = append(errs, fmt.Errorf("world_update_manhattan_distance %g: below minimum_ready_tiles_manhattan_distance %g",
			c.WorldUpdateManhattanDistance, c.MinimumReadyTilesManhattanDistance))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d: must be positive", c.Workers))
	}
	if c.Elasticity < 0 || c.Elasticity > 1 {
		errs = append(errs, fmt.Errorf("elasticity %g: want [0, 1]", c.Elasticity))
	}
	if c.CorrectionStep <= 0 || c.CorrectionStep > 1 {
		errs = append(errs, fmt.Errorf("correction_step %g: want (0, 1]", c.CorrectionStep))
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate %d: must be positive", c.TickRate))
	}
	if c.CameraHalfExtent <= 0 {
		errs = append(errs, fmt.Errorf("camera_half_extent %g: must be positive", c.CameraHalfExtent))
	}
	return errors.Join(errs...)
}

// TerrainOptions returns the options for the opaque background layer.
func (c *Config) TerrainOptions() terrain.Options {
	return terrain.Options{Seed: c.Seed, Fade: c.Fade, Noise: c.Noise, Octaves: c.Octaves}
}

// LayerConfig returns the streaming distances of every layer.
func (c *Config) LayerConfig() world.LayerConfig {
	return world.LayerConfig{
		WorldUpdateManhattanDistance:       c.WorldUpdateManhattanDistance,
		MinimumReadyTilesManhattanDistance: c.MinimumReadyTilesManhattanDistance,
	}
}
