package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OCharnyshevich/raster-world/internal/engine"
	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/engine/game"
	"github.com/OCharnyshevich/raster-world/internal/engine/storage"
	"github.com/OCharnyshevich/raster-world/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run drives the world until interrupted or done and returns the exit code.
// Deferred cleanup, such as closing the log file, runs before the process exits.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("world", flag.ContinueOnError)
	duration := fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	session := fs.String("session", "", "restore and save the player under this session name")
	autopilot := fs.Bool("autopilot", true, "steer the player automatically")
	saved := fs.Bool("saved-config", false, "start from the config saved in data-dir; flags still win")
	saveConfig := fs.Bool("save-config", false, "write the effective config to data-dir")

	cfg, explicit, err := config.ParseFlags(fs, args)
	if err != nil {
		slog.Error("parse config", "error", err)
		return 2
	}

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile, stdout)
	if err != nil {
		slog.Error("create logger", "error", err)
		return 2
	}
	defer closeLog()

	st, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Error("open storage", "error", err)
		return 1
	}
	if *saved {
		fromDisk := *cfg
		if err := st.LoadConfig(&fromDisk); err != nil {
			log.Error("load saved config", "error", err)
			return 1
		}
		config.Merge(cfg, &fromDisk, explicit)
	}
	if *saveConfig {
		if err := st.SaveConfig(cfg); err != nil {
			log.Error("save config", "error", err)
			return 1
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, *duration)
		defer stop()
	}

	steering := game.NewSteering()
	opts := engine.Options{Input: steering}
	if *autopilot {
		pilot := newAutopilot(steering, cfg.TickRate)
		opts.OnTick = pilot.tick
	}

	eng, err := engine.New(ctx, cfg, opts, log)
	if err != nil {
		log.Error("start engine", "error", err)
		return 1
	}

	if *session != "" {
		sd, err := st.LoadSession(*session)
		if err != nil {
			log.Error("load session", "error", err)
			return 1
		}
		if sd != nil {
			if sd.Seed != cfg.Seed {
				log.Warn("session was saved in another world", "session", *session, "seed", sd.Seed)
			}
			sd.Apply(eng.Game().Player())
			log.Info("session restored", "session", *session, "x", sd.Position.X, "y", sd.Position.Y)
		}
	}

	runErr := eng.Run(ctx)

	if *session != "" {
		if err := st.SaveSession(*session, cfg.Seed, eng.Game().Player()); err != nil {
			log.Error("save session", "error", err)
		}
	}
	if runErr != nil {
		log.Error("engine error", "error", runErr)
		return 1
	}
	return 0
}

// autopilot cruises forward and turns left for one second out of every four.
type autopilot struct {
	steering *game.Steering
	tickRate int
	ticks    int
}

func newAutopilot(s *game.Steering, tickRate int) *autopilot {
	return &autopilot{steering: s, tickRate: tickRate}
}

const cruiseSpeed = game.MaxSpeed / 2

func (a *autopilot) tick(g *game.Game) error {
	if !g.Ready() {
		return nil
	}
	a.ticks++

	a.steering.Set(game.KeyW, g.Player().Speed() < cruiseSpeed)
	elapsed := time.Duration(a.ticks) * time.Second / time.Duration(a.tickRate)
	a.steering.Set(game.KeyA, elapsed%(4*time.Second) < time.Second)
	return nil
}
