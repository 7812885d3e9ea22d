package world

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/raster-world/internal/engine/queue"
	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

// ChunkSize is the edge length of a chunk in tiles.
const ChunkSize = 8

// ChunkState tracks a chunk through its lifecycle.
type ChunkState int32

const (
	ChunkPending ChunkState = iota
	ChunkReady
	ChunkDisposed
)

func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkReady:
		return "ready"
	case ChunkDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("ChunkState(%d)", int32(s))
	}
}

var errDisposed = errors.New("chunk disposed")

// TileSource produces tile pixel buffers asynchronously.
type TileSource interface {
	Request(ctx context.Context, tileX, tileY int) (<-chan []byte, error)
	Resolution() int
	Channels() int
}

// Drawer receives the tiles a layer wants on screen. It is only called from
// the simulation goroutine.
type Drawer interface {
	AddTile(layer string, t *Tile)
	RemoveTile(layer string, t *Tile)
	RefreshTile(layer string, t *Tile)
}

// ChunkEnv holds what every chunk of a layer shares.
type ChunkEnv struct {
	Layer  string
	Queue  *queue.Queue[*Chunk]
	Source TileSource
	Drawer Drawer
	Log    *slog.Logger
}

// FloorToChunk returns the chunk origin containing tile coordinate v.
func FloorToChunk(v int) int {
	return int(math.Floor(float64(v)/ChunkSize)) * ChunkSize
}

// Chunk is a ChunkSize x ChunkSize block of tiles populated in the background.
// X and Y are tile coordinates of its lower corner.
type Chunk struct {
	X, Y int

	env    *ChunkEnv
	state  atomic.Int32
	cancel context.CancelFunc

	mu    sync.Mutex
	tiles []*Tile // x-major: index lx*ChunkSize+ly
}

// NewChunk creates a chunk and enqueues it with the given priority. Population
// starts with Start.
func NewChunk(env *ChunkEnv, x, y int, priority float64) *Chunk {
	c := &Chunk{
		X:     x,
		Y:     y,
		env:   env,
		tiles: make([]*Tile, ChunkSize*ChunkSize),
	}
	env.Queue.Add(c, priority)
	return c
}

// Start populates the chunk in the background until it is ready or disposed.
func (c *Chunk) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.populate(ctx)
}

// State returns the current lifecycle state.
func (c *Chunk) State() ChunkState {
	return ChunkState(c.state.Load())
}

// Ready reports whether every tile has arrived.
func (c *Chunk) Ready() bool {
	return c.State() == ChunkReady
}

// Reprioritise changes the chunk's place in the generation queue. It is a no-op
// once the chunk has issued its requests.
func (c *Chunk) Reprioritise(priority float64) {
	c.env.Queue.ChangePriority(c, priority)
}

func (c *Chunk) populate(ctx context.Context) {
	if err := c.env.Queue.WaitTurn(ctx, c); err != nil {
		return
	}

	seed := xxhash.Sum64String(fmt.Sprintf("%d:%d", c.X, c.Y))
	order := rand.New(rand.NewPCG(seed, ChunkSize)).Perm(ChunkSize * ChunkSize)
	outs := make([]<-chan []byte, len(order))
	for _, i := range order {
		tx, ty := c.X+i/ChunkSize, c.Y+i%ChunkSize
		out, err := c.env.Source.Request(ctx, tx, ty)
		if err != nil {
			c.env.Queue.Remove(c)
			if ctx.Err() == nil {
				c.env.Log.Error("request tile", "layer", c.env.Layer, "tileX", tx, "tileY", ty, "error", err)
			}
			return
		}
		outs[i] = out
	}
	// Requests are out; let the next chunk start while these resolve.
	c.env.Queue.Remove(c)

	g, gctx := errgroup.WithContext(ctx)
	for i, out := range outs {
		g.Go(func() error {
			select {
			case data := <-out:
				return c.install(i, data)
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, errDisposed) && ctx.Err() == nil {
			c.env.Log.Error("populate chunk", "layer", c.env.Layer, "x", c.X, "y", c.Y, "error", err)
		}
		return
	}

	c.mu.Lock()
	c.state.CompareAndSwap(int32(ChunkPending), int32(ChunkReady))
	c.mu.Unlock()
}

func (c *Chunk) install(i int, data []byte) error {
	res, ch := c.env.Source.Resolution(), c.env.Source.Channels()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == ChunkDisposed {
		return errDisposed
	}
	if c.tiles[i] != nil {
		return nil
	}
	t, err := newTile(c.X+i/ChunkSize, c.Y+i%ChunkSize, res, ch, data)
	if err != nil {
		return err
	}
	c.tiles[i] = t
	return nil
}

// Update registers newly arrived tiles with the drawer and refreshes dirty ones.
func (c *Chunk) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == ChunkDisposed || c.env.Drawer == nil {
		return
	}
	for _, t := range c.tiles {
		switch {
		case t == nil:
		case !t.registered:
			t.registered = true
			t.Sync(true)
			c.env.Drawer.AddTile(c.env.Layer, t)
		case t.Sync(false):
			c.env.Drawer.RefreshTile(c.env.Layer, t)
		}
	}
}

// Tiles yields the tiles that have arrived so far.
func (c *Chunk) Tiles() iter.Seq[*Tile] {
	return func(yield func(*Tile) bool) {
		c.mu.Lock()
		tiles := make([]*Tile, 0, len(c.tiles))
		for _, t := range c.tiles {
			if t != nil {
				tiles = append(tiles, t)
			}
		}
		c.mu.Unlock()

		for _, t := range tiles {
			if !yield(t) {
				return
			}
		}
	}
}

// PixelAt returns the pixel covering world point (x, y).
func (c *Chunk) PixelAt(x, y float64) (raster.Pixel, error) {
	if !c.Ready() {
		return raster.Pixel{}, fmt.Errorf("chunk (%d,%d) %s: %w", c.X, c.Y, c.State(), raster.ErrNotReady)
	}
	lx, ly := int(math.Floor(x))-c.X, int(math.Floor(y))-c.Y
	if lx < 0 || lx >= ChunkSize || ly < 0 || ly >= ChunkSize {
		return raster.Pixel{}, fmt.Errorf("chunk (%d,%d) at (%g,%g): %w", c.X, c.Y, x, y, raster.ErrOutOfBounds)
	}

	c.mu.Lock()
	var t *Tile
	if c.tiles != nil {
		t = c.tiles[lx*ChunkSize+ly]
	}
	c.mu.Unlock()
	if t == nil {
		return raster.Pixel{}, fmt.Errorf("chunk (%d,%d): %w", c.X, c.Y, raster.ErrNotReady)
	}
	return t.PixelAt(x, y)
}

// Dispose stops population and withdraws the chunk's tiles from the drawer.
// It is idempotent.
func (c *Chunk) Dispose() {
	c.mu.Lock()
	if c.State() == ChunkDisposed {
		c.mu.Unlock()
		return
	}
	c.state.Store(int32(ChunkDisposed))
	tiles := c.tiles
	c.tiles = nil
	c.mu.Unlock()

	c.env.Queue.Remove(c)
	if c.cancel != nil {
		c.cancel()
	}
	if c.env.Drawer == nil {
		return
	}
	for _, t := range tiles {
		if t != nil && t.registered {
			c.env.Drawer.RemoveTile(c.env.Layer, t)
		}
	}
}
