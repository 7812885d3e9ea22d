package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/engine/tilegen"
	"github.com/OCharnyshevich/raster-world/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gend", flag.ContinueOnError)
	maxInFlight := fs.Int64("max-in-flight", 1024, "tiles generated at once across all connections")

	cfg, _, err := config.ParseFlags(fs, args)
	if err != nil {
		slog.Error("parse config", "error", err)
		return 2
	}

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile, os.Stdout)
	if err != nil {
		slog.Error("create logger", "error", err)
		return 2
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gen := tilegen.NewServer(cfg.Workers, cfg.CacheMaxCost, *maxInFlight, log)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           gen.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("tile generator listening", "addr", cfg.Listen, "workers", cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		return 1
	}
	log.Info("tile generator stopped")
	return 0
}
