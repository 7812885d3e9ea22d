package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/engine/game"
	"github.com/OCharnyshevich/raster-world/internal/engine/tilegen"
	"github.com/OCharnyshevich/raster-world/internal/engine/world"
)

// CollisionSeedSuffix derives the collision layer seed from the world seed.
const CollisionSeedSuffix = "/collision"

// statsInterval is how often Run logs streaming statistics.
const statsInterval = 5 * time.Second

// Options are the collaborators of an Engine. All fields are optional.
type Options struct {
	Input  game.Input
	Drawer world.Drawer
	// OnTick runs on the simulation goroutine after every Update. A non-nil
	// error stops Run; ErrStop stops it cleanly.
	OnTick func(g *game.Game) error
}

// ErrStop may be returned from OnTick to end Run without an error.
var ErrStop = errors.New("stop engine")

// Engine drives a game at a fixed tick rate with tiles generated in-process or
// by a remote generation server.
type Engine struct {
	cfg  *config.Config
	log  *slog.Logger
	opts Options

	transport tilegen.Transport
	channel   *tilegen.Channel
	game      *game.Game
}

// New connects the tile transport and builds the game. Chunks are generated
// under ctx.
func New(ctx context.Context, cfg *config.Config, opts Options, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	transport, err := dialTransport(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	bg := cfg.TerrainOptions()
	coll := bg
	coll.Seed += CollisionSeedSuffix
	coll.TransparentBackground = true

	ch := tilegen.NewChannel(transport, cfg.TileResolution, log.With("component", "tilegen"))
	src := game.Sources{
		Background: ch.Source(bg),
		Collision:  ch.Source(coll),
	}

	return &Engine{
		cfg:       cfg,
		log:       log,
		opts:      opts,
		transport: transport,
		channel:   ch,
		game:      game.New(ctx, cfg, src, opts.Input, opts.Drawer, log),
	}, nil
}

func dialTransport(ctx context.Context, cfg *config.Config, log *slog.Logger) (tilegen.Transport, error) {
	if cfg.GeneratorURL != "" {
		r, err := tilegen.Dial(ctx, cfg.GeneratorURL, log.With("component", "remote"))
		if err != nil {
			return nil, err
		}
		log.Info("using remote tile generation", "url", cfg.GeneratorURL)
		return r, nil
	}
	p, err := tilegen.NewPool(cfg.Workers, cfg.CacheMaxCost, log.With("component", "pool"))
	if err != nil {
		return nil, fmt.Errorf("start tile workers: %w", err)
	}
	return p, nil
}

// Game returns the simulated game.
func (e *Engine) Game() *game.Game {
	return e.game
}

// Run ticks the game until ctx is cancelled, OnTick stops it, or a tick fails.
// The game and transport are released on return.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started",
		"seed", e.cfg.Seed,
		"tickRate", e.cfg.TickRate,
		"tileResolution", e.cfg.TileResolution,
		"noise", e.cfg.Noise,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := e.channel.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tile channel: %w", err)
	})
	g.Go(func() error {
		defer cancel()
		return e.loop(gctx)
	})

	err := g.Wait()

	e.game.Dispose()
	if cerr := e.transport.Close(); cerr != nil {
		e.log.Warn("close tile transport", "error", cerr)
	}
	e.log.Info("engine stopped")
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	lastStats := last
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			if err := e.game.Update(dt); err != nil {
				e.log.Error("tick failed", "error", err)
				return fmt.Errorf("tick: %w", err)
			}
			if e.opts.OnTick != nil {
				if err := e.opts.OnTick(e.game); err != nil {
					if errors.Is(err, ErrStop) {
						return nil
					}
					return err
				}
			}

			if now.Sub(lastStats) >= statsInterval {
				lastStats = now
				e.logStats()
			}
		}
	}
}

func (e *Engine) logStats() {
	p := e.game.Player()
	sim, skipped := e.game.Frames()
	e.log.Info("world stats",
		"ready", e.game.Ready(),
		"chunks", e.game.TotalChunksCount(),
		"queued", e.game.ChunksInQueue(),
		"pendingTiles", e.channel.Pending(),
		"frames", sim,
		"skipped", skipped,
		"x", p.X(),
		"y", p.Y(),
		"speed", p.Speed(),
	)
}
