package world

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

// ChunkPos is the origin of a chunk in tile coordinates.
type ChunkPos struct {
	X, Y int
}

// Viewport is the visible world rectangle, centred on the camera.
type Viewport struct {
	X, Y                  float64
	HalfWidth, HalfHeight float64
}

// Camera reports what part of the world is visible.
type Camera interface {
	Viewport() Viewport
}

// LayerConfig controls streaming distances, in world units.
type LayerConfig struct {
	// Chunks entirely beyond this distance from the camera are evicted.
	WorldUpdateManhattanDistance float64
	// Every chunk within this distance must be ready for the layer to be ready.
	MinimumReadyTilesManhattanDistance float64
}

// DefaultLayerConfig returns the stock streaming distances.
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{
		WorldUpdateManhattanDistance:       64,
		MinimumReadyTilesManhattanDistance: 6,
	}
}

// Layer keeps the chunks around the camera populated and evicts distant ones.
type Layer struct {
	ctx    context.Context
	env    *ChunkEnv
	camera Camera
	cfg    LayerConfig
	log    *slog.Logger

	mu     sync.RWMutex
	chunks map[ChunkPos]*Chunk

	// Simulation goroutine only.
	window      ChunkPos
	windowRange int
	hasWindow   bool
	ready       bool
}

// NewLayer creates a layer. Chunks are populated under ctx.
func NewLayer(ctx context.Context, env *ChunkEnv, camera Camera, cfg LayerConfig) *Layer {
	return &Layer{
		ctx:    ctx,
		env:    env,
		camera: camera,
		cfg:    cfg,
		log:    env.Log.With("layer", env.Layer),
		chunks: make(map[ChunkPos]*Chunk),
	}
}

// Name returns the layer name used with the drawer.
func (l *Layer) Name() string {
	return l.env.Layer
}

// Update streams chunks around the camera, evicts far ones and advances every
// live chunk. It must be called from the simulation goroutine.
func (l *Layer) Update() {
	vp := l.camera.Viewport()

	l.fillWindow(vp)
	l.evict(vp)

	l.mu.RLock()
	for _, c := range l.chunks {
		c.Update()
	}
	l.mu.RUnlock()

	l.ready = l.computeReady(vp)
}

func (l *Layer) fillWindow(vp Viewport) {
	// No extra margin chunk beyond the viewport: a small camera keeps a 3x3
	// window. The ready box and the physics step clamp cover the gap, at the
	// cost of brief stalls when the camera crosses into an unwarmed chunk.
	n := max(1, int(math.Ceil(max(vp.HalfWidth, vp.HalfHeight)/ChunkSize)))
	centre := ChunkPos{
		X: FloorToChunk(int(math.Floor(vp.X))),
		Y: FloorToChunk(int(math.Floor(vp.Y))),
	}
	if l.hasWindow && centre == l.window && n == l.windowRange {
		return
	}
	l.window, l.windowRange, l.hasWindow = centre, n, true

	l.mu.Lock()
	defer l.mu.Unlock()

	created := 0
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			pos := ChunkPos{X: centre.X + i*ChunkSize, Y: centre.Y + j*ChunkSize}
			priority := chunkPriority(pos, vp)
			if c, ok := l.chunks[pos]; ok {
				c.Reprioritise(priority)
				continue
			}
			c := NewChunk(l.env, pos.X, pos.Y, priority)
			l.chunks[pos] = c
			c.Start(l.ctx)
			created++
		}
	}
	if created > 0 {
		l.log.Debug("chunks scheduled", "created", created, "centreX", centre.X, "centreY", centre.Y, "range", n)
	}
}

func (l *Layer) evict(vp Viewport) {
	d := l.cfg.WorldUpdateManhattanDistance

	l.mu.Lock()
	defer l.mu.Unlock()

	for pos, c := range l.chunks {
		x, y := float64(pos.X), float64(pos.Y)
		if x+ChunkSize < vp.X-d || x > vp.X+d || y+ChunkSize < vp.Y-d || y > vp.Y+d {
			c.Dispose()
			delete(l.chunks, pos)
		}
	}
}

func (l *Layer) computeReady(vp Viewport) bool {
	d := l.cfg.MinimumReadyTilesManhattanDistance
	x0, x1 := FloorToChunk(int(math.Floor(vp.X-d))), FloorToChunk(int(math.Floor(vp.X+d)))
	y0, y1 := FloorToChunk(int(math.Floor(vp.Y-d))), FloorToChunk(int(math.Floor(vp.Y+d)))

	l.mu.RLock()
	defer l.mu.RUnlock()

	for x := x0; x <= x1; x += ChunkSize {
		for y := y0; y <= y1; y += ChunkSize {
			c, ok := l.chunks[ChunkPos{X: x, Y: y}]
			if !ok || !c.Ready() {
				return false
			}
		}
	}
	return true
}

// chunkPriority favours chunks whose centre is nearest the camera.
func chunkPriority(pos ChunkPos, vp Viewport) float64 {
	dx := float64(pos.X) + ChunkSize/2 - vp.X
	dy := float64(pos.Y) + ChunkSize/2 - vp.Y
	return 1 - (dx*dx + dy*dy)
}

// Ready reports whether every chunk near the camera was ready at the last Update.
func (l *Layer) Ready() bool {
	return l.ready
}

// ChunksCount returns the number of live chunks.
func (l *Layer) ChunksCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chunks)
}

// Chunk returns the live chunk with the given origin.
func (l *Layer) Chunk(pos ChunkPos) (*Chunk, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.chunks[pos]
	return c, ok
}

// PixelAt returns the pixel covering world point (x, y).
func (l *Layer) PixelAt(x, y float64) (raster.Pixel, error) {
	pos := ChunkPos{
		X: FloorToChunk(int(math.Floor(x))),
		Y: FloorToChunk(int(math.Floor(y))),
	}
	c, ok := l.Chunk(pos)
	if !ok {
		return raster.Pixel{}, fmt.Errorf("no chunk at (%d,%d): %w", pos.X, pos.Y, raster.ErrNotReady)
	}
	return c.PixelAt(x, y)
}

// Dispose disposes every chunk and forgets them.
func (l *Layer) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for pos, c := range l.chunks {
		c.Dispose()
		delete(l.chunks, pos)
	}
	l.hasWindow = false
	l.ready = false
}
