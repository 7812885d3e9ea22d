package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// ParseFlags registers the common flags on fs, parses args and layers the
// result over the config file and environment. Callers may register their own
// flags on fs first. It returns the names of flags set on the command line.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, map[string]bool, error) {
	cfg := DefaultConfig()

	path := fs.String("config", "", "config file (json, toml or yaml)")
	envFile := fs.String("env-file", ".env", "dotenv file read before RASTERWORLD_* variables")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "world seed")
	fs.Float64Var(&cfg.Fade, "fade", cfg.Fade, "biome edge blend width in [0, 1]")
	fs.StringVar(&cfg.Noise, "noise", cfg.Noise, "noise backend: simplex or perlin")
	fs.IntVar(&cfg.Octaves, "octaves", cfg.Octaves, "noise octaves in the background shade")
	fs.IntVar(&cfg.TileResolution, "tile-resolution", cfg.TileResolution, "tile edge in pixels")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "tile generation workers")
	fs.StringVar(&cfg.GeneratorURL, "generator-url", cfg.GeneratorURL, "remote generation server (ws://host/ws); empty runs workers in-process")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "generation server listen address")
	fs.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "simulation ticks per second")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also log to this file, rotated")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for saved config and sessions")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("load env file %s: %w", *envFile, err)
		}
	}

	fromFile, err := Load(*path)
	if err != nil {
		return nil, nil, err
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	Merge(cfg, fromFile, explicit)
	return cfg, explicit, nil
}
