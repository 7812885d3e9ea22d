package game

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/engine/physics"
	"github.com/OCharnyshevich/raster-world/internal/engine/queue"
	"github.com/OCharnyshevich/raster-world/internal/engine/world"
)

// Layer names handed to the drawer.
const (
	LayerBackground = "background"
	LayerCollision  = "collision"
)

// Sources supplies tiles for each layer. Collision tiles must carry alpha.
type Sources struct {
	Background world.TileSource
	Collision  world.TileSource
}

// Game wires streaming layers, the physics world, the player and the camera.
// All methods must be called from the simulation goroutine.
type Game struct {
	cfg *config.Config
	log *slog.Logger

	queue      *queue.Queue[*world.Chunk]
	background *world.Layer
	collision  *world.Layer
	physics    *physics.World

	camera *Camera
	player *Player
	input  Input

	ready   bool
	frames  uint64
	skipped uint64
}

// New builds a game. Chunks are generated under ctx. input and drawer may be nil.
func New(ctx context.Context, cfg *config.Config, src Sources, input Input, drawer world.Drawer, log *slog.Logger) *Game {
	if input == nil {
		input = noInput{}
	}
	g := &Game{
		cfg:     cfg,
		log:     log,
		queue:   queue.New[*world.Chunk](),
		physics: physics.NewWorld(log.With("component", "physics")),
		camera:  NewCamera(cfg.CameraHalfExtent),
		player:  NewPlayer(0, 0),
		input:   input,
	}

	g.player.Elasticity = cfg.Elasticity
	g.player.CorrectionStep = cfg.CorrectionStep
	g.camera.Follow(g.player)

	layerCfg := cfg.LayerConfig()
	g.background = world.NewLayer(ctx, g.chunkEnv(LayerBackground, src.Background, drawer), g.camera, layerCfg)
	g.collision = world.NewLayer(ctx, g.chunkEnv(LayerCollision, src.Collision, drawer), g.camera, layerCfg)

	g.physics.Add(g.collision, g.player)
	return g
}

func (g *Game) chunkEnv(name string, src world.TileSource, drawer world.Drawer) *world.ChunkEnv {
	return &world.ChunkEnv{
		Layer:  name,
		Queue:  g.queue,
		Source: src,
		Drawer: drawer,
		Log:    g.log,
	}
}

// Update advances the game by dt seconds. Frames longer than MaxFrameDelta are
// skipped. While any layer is still generating, physics does not run and
// nothing moves.
func (g *Game) Update(dt float64) error {
	if dt > g.cfg.MaxFrameDelta {
		g.skipped++
		g.log.Warn("skipping frame", "delta", dt, "max", g.cfg.MaxFrameDelta)
		return nil
	}
	g.frames++

	g.background.Update()
	g.collision.Update()
	g.ready = g.background.Ready() && g.collision.Ready()

	if g.ready {
		g.player.Steer(g.input, dt)
		step := g.reachableStep(dt)
		if step < dt {
			g.log.Debug("physics step clamped to ready area", "delta", dt, "step", step)
		}
		if err := g.physics.Update(step); err != nil {
			return fmt.Errorf("update physics: %w", err)
		}
	}

	g.camera.Update()
	return nil
}

// reachableStep returns the largest part of dt the player can be integrated over
// without its sensor leaving the box around the camera that Ready covers. The
// rest of the frame is dropped; the camera catches up and the next frame moves on.
func (g *Game) reachableStep(dt float64) float64 {
	half := g.cfg.MinimumReadyTilesManhattanDistance
	c := g.player.Center()
	v := g.player.Velocity().Vec2()
	reach := max(g.player.Width(), g.player.Height())/2 + physics.Epsilon

	step := dt
	for axis, off := range [2]float64{c.X() - g.camera.X(), c.Y() - g.camera.Y()} {
		speed := math.Abs(v[axis])
		if speed <= physics.Epsilon {
			continue
		}
		room := half - math.Abs(off) - reach
		if room <= 0 {
			return 0
		}
		step = min(step, room/speed)
	}
	return step
}

// Ready reports whether every layer had its chunks near the camera at the last Update.
func (g *Game) Ready() bool { return g.ready }

// ChunksInQueue returns the number of chunks waiting for their generation turn.
func (g *Game) ChunksInQueue() int { return g.queue.Size() }

// TotalChunksCount returns the number of live chunks across all layers.
func (g *Game) TotalChunksCount() int {
	return g.background.ChunksCount() + g.collision.ChunksCount()
}

func (g *Game) Player() *Player { return g.player }
func (g *Game) Camera() *Camera { return g.camera }

// Background returns the opaque terrain layer.
func (g *Game) Background() *world.Layer { return g.background }

// Collision returns the transparent layer the player collides with.
func (g *Game) Collision() *world.Layer { return g.collision }

// Frames returns how many frames were simulated and how many were skipped.
func (g *Game) Frames() (simulated, skipped uint64) { return g.frames, g.skipped }

// Dispose drops every chunk and cancels their generation.
func (g *Game) Dispose() {
	g.physics.Remove(g.collision, g.player)
	g.background.Dispose()
	g.collision.Dispose()
	g.queue.Clear()
}
