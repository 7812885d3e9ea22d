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

	"github.com/gdamore/tcell/v2"

	"github.com/OCharnyshevich/raster-world/internal/engine"
	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/logging"
)

// Terminal cells cannot show more detail than this.
const viewerTileResolution = 8

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("viewer", flag.ContinueOnError)
	zoom := fs.Float64("zoom", 8, "terminal columns per world unit")
	fps := fs.Int("fps", 30, "screen refresh rate")

	cfg, explicit, err := config.ParseFlags(fs, args)
	if err != nil {
		slog.Error("parse config", "error", err)
		return 2
	}
	if !explicit["tile-resolution"] {
		cfg.TileResolution = viewerTileResolution
	}

	// The terminal belongs to the screen; logs only go to the log file.
	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile, io.Discard)
	if err != nil {
		slog.Error("create logger", "error", err)
		return 2
	}
	defer closeLog()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Error("create screen", "error", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		log.Error("init screen", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	keys := newKeyHold(250 * time.Millisecond)
	go pollEvents(screen, keys, cancel)

	tiles := newTileCounter()
	v := &view{
		screen: screen,
		tiles:  tiles,
		zoom:   *zoom,
		every:  max(1, cfg.TickRate / max(1, *fps)),
	}

	eng, err := engine.New(ctx, cfg, engine.Options{Input: keys, Drawer: tiles, OnTick: v.render}, log)
	if err != nil {
		screen.Fini()
		log.Error("start engine", "error", err)
		return 1
	}

	runErr := eng.Run(ctx)
	screen.Fini()
	if runErr != nil {
		log.Error("engine error", "error", runErr)
		return 1
	}
	return 0
}
