package world

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/raster-world/internal/engine/queue"
	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource answers every request with an opaque tile whose red channel encodes
// the tile position. A non-nil gate holds responses until it is closed.
type fakeSource struct {
	gate chan struct{}

	mu       sync.Mutex
	requests []ChunkPos
}

func (f *fakeSource) Resolution() int { return 2 }
func (f *fakeSource) Channels() int   { return 4 }

func (f *fakeSource) Request(ctx context.Context, x, y int) (<-chan []byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, ChunkPos{X: x, Y: y})
	f.mu.Unlock()

	buf := make([]byte, 2*2*4)
	for i := 0; i < len(buf); i += 4 {
		buf[i] = byte(x*16 + y)
		buf[i+3] = 255
	}
	out := make(chan []byte, 1)
	if f.gate == nil {
		out <- buf
		return out, nil
	}
	go func() {
		select {
		case <-f.gate:
			out <- buf
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (f *fakeSource) requested() []ChunkPos {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChunkPos(nil), f.requests...)
}

type recordingDrawer struct {
	added, removed, refreshed int
}

func (d *recordingDrawer) AddTile(string, *Tile)     { d.added++ }
func (d *recordingDrawer) RemoveTile(string, *Tile)  { d.removed++ }
func (d *recordingDrawer) RefreshTile(string, *Tile) { d.refreshed++ }

type fixedCamera struct {
	vp Viewport
}

func (c *fixedCamera) Viewport() Viewport { return c.vp }

func newEnv(src TileSource, drawer Drawer) *ChunkEnv {
	return &ChunkEnv{
		Layer:  "test",
		Queue:  queue.New[*Chunk](),
		Source: src,
		Drawer: drawer,
		Log:    testLogger(),
	}
}

func TestFloorToChunk(t *testing.T) {
	cases := map[int]int{0: 0, 7: 0, 8: 8, -1: -8, -8: -8, -9: -16, 17: 16}
	for in, want := range cases {
		assert.Equal(t, want, FloorToChunk(in), "FloorToChunk(%d)", in)
	}
}

func TestTileSyncThrottle(t *testing.T) {
	tile, err := newTile(0, 0, 1, 3, []byte{1, 2, 3})
	require.NoError(t, err)

	require.True(t, tile.Sync(true))
	require.False(t, tile.Sync(false), "clean tile never syncs")

	tile.dirty = true
	for i := 1; i < textureUpdateFrequency; i++ {
		require.False(t, tile.Sync(false), "frame %d", i)
	}
	require.True(t, tile.Sync(false))
	require.False(t, tile.dirty)
}

func TestTilePixelAt(t *testing.T) {
	// 2x2 RGB tile at (3,-1): row-major, x across.
	tile, err := newTile(3, -1, 2, 3, []byte{
		10, 0, 0, 20, 0, 0,
		30, 0, 0, 40, 0, 0,
	})
	require.NoError(t, err)

	p, err := tile.PixelAt(3.25, -0.75)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), p.R)

	p, err = tile.PixelAt(3.75, -0.25)
	require.NoError(t, err)
	assert.Equal(t, uint8(40), p.R)

	_, err = tile.PixelAt(4, -0.5)
	require.ErrorIs(t, err, raster.ErrOutOfBounds)

	_, err = newTile(0, 0, 2, 3, []byte{1})
	require.Error(t, err)
}

func TestChunkBecomesReady(t *testing.T) {
	src := &fakeSource{}
	env := newEnv(src, nil)
	c := NewChunk(env, 8, -8, 1)

	_, err := c.PixelAt(8.5, -7.5)
	require.ErrorIs(t, err, raster.ErrNotReady)

	c.Start(context.Background())
	defer c.Dispose()
	require.Eventually(t, c.Ready, 2*time.Second, 5*time.Millisecond)
	require.Len(t, src.requested(), ChunkSize*ChunkSize)
	require.Zero(t, env.Queue.Size())

	p, err := c.PixelAt(10.5, -5.5)
	require.NoError(t, err)
	assert.Equal(t, byte(10*16-6), p.R)
	assert.True(t, p.Solid())

	_, err = c.PixelAt(16.5, -5.5)
	require.ErrorIs(t, err, raster.ErrOutOfBounds)

	n := 0
	for tile := range c.Tiles() {
		n++
		require.True(t, c.X <= tile.X && tile.X < c.X+ChunkSize, "tile x %d outside chunk at %d", tile.X, c.X)
		require.True(t, c.Y <= tile.Y && tile.Y < c.Y+ChunkSize, "tile y %d outside chunk at %d", tile.Y, c.Y)
	}
	require.Equal(t, ChunkSize*ChunkSize, n)
}

func TestChunkHigherPriorityRequestsFirst(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	defer close(src.gate)
	env := newEnv(src, nil)

	low := NewChunk(env, 0, 0, 1)
	high := NewChunk(env, 64, 0, 2)
	low.Start(context.Background())
	high.Start(context.Background())
	defer low.Dispose()
	defer high.Dispose()

	require.Eventually(t, func() bool {
		return len(src.requested()) == 2*ChunkSize*ChunkSize
	}, 2*time.Second, 5*time.Millisecond)

	reqs := src.requested()
	for _, r := range reqs[:ChunkSize*ChunkSize] {
		require.GreaterOrEqual(t, r.X, 64, "high priority chunk must request first")
	}
}

func TestChunkDisposeWhilePending(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	drawer := &recordingDrawer{}
	env := newEnv(src, drawer)

	c := NewChunk(env, 0, 0, 1)
	c.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(src.requested()) == ChunkSize*ChunkSize
	}, 2*time.Second, 5*time.Millisecond)

	c.Dispose()
	c.Dispose()
	close(src.gate)

	require.Equal(t, ChunkDisposed, c.State())
	time.Sleep(20 * time.Millisecond)
	require.False(t, c.Ready())
	c.Update()
	require.Zero(t, drawer.added)

	_, err := c.PixelAt(0.5, 0.5)
	require.ErrorIs(t, err, raster.ErrNotReady)
}

func TestChunkDisposeWhileQueued(t *testing.T) {
	src := &fakeSource{gate: make(chan struct{})}
	defer close(src.gate)
	env := newEnv(src, nil)

	blocker := NewChunk(env, 0, 0, 10)
	queued := NewChunk(env, 8, 0, 1)
	queued.Start(context.Background())
	require.Equal(t, 2, env.Queue.Size())

	queued.Dispose()
	require.Equal(t, 1, env.Queue.Size())
	require.False(t, env.Queue.Contains(queued))
	blocker.Dispose()
	require.Empty(t, src.requested())
}

func TestLayerStreamsAroundCamera(t *testing.T) {
	src := &fakeSource{}
	drawer := &recordingDrawer{}
	cam := &fixedCamera{vp: Viewport{HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), newEnv(src, drawer), cam, DefaultLayerConfig())
	defer layer.Dispose()

	layer.Update()
	require.Equal(t, 9, layer.ChunksCount())
	for _, pos := range []ChunkPos{{-8, -8}, {0, 0}, {8, 8}, {-8, 8}} {
		_, ok := layer.Chunk(pos)
		require.True(t, ok, "chunk %v", pos)
	}

	require.Eventually(t, func() bool {
		layer.Update()
		return layer.Ready()
	}, 5*time.Second, 5*time.Millisecond)

	p, err := layer.PixelAt(-0.5, 0.5)
	require.NoError(t, err)
	assert.True(t, p.Solid())

	// Keep updating until every chunk has handed its tiles to the drawer.
	require.Eventually(t, func() bool {
		layer.Update()
		return drawer.added == 9*ChunkSize*ChunkSize
	}, 5*time.Second, 5*time.Millisecond)
}

func TestLayerReadyMonotonicWhileCameraStill(t *testing.T) {
	src := &fakeSource{}
	cam := &fixedCamera{vp: Viewport{X: 3, Y: 3, HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), newEnv(src, nil), cam, DefaultLayerConfig())
	defer layer.Dispose()

	require.Eventually(t, func() bool {
		layer.Update()
		return layer.Ready()
	}, 5*time.Second, 5*time.Millisecond)

	for i := 0; i < 20; i++ {
		layer.Update()
		require.True(t, layer.Ready())
	}
}

func TestLayerEvictsDistantChunks(t *testing.T) {
	src := &fakeSource{}
	drawer := &recordingDrawer{}
	cam := &fixedCamera{vp: Viewport{HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), newEnv(src, drawer), cam, DefaultLayerConfig())
	defer layer.Dispose()

	require.Eventually(t, func() bool {
		layer.Update()
		return drawer.added == 9*ChunkSize*ChunkSize
	}, 5*time.Second, 5*time.Millisecond)

	cam.vp.X = 200
	layer.Update()
	require.Equal(t, 9, layer.ChunksCount())
	_, ok := layer.Chunk(ChunkPos{})
	require.False(t, ok)
	require.Equal(t, 9*ChunkSize*ChunkSize, drawer.removed)

	_, err := layer.PixelAt(0.5, 0.5)
	require.ErrorIs(t, err, raster.ErrNotReady)
}

func TestLayerKeepsChunksWithinUpdateDistance(t *testing.T) {
	src := &fakeSource{}
	cam := &fixedCamera{vp: Viewport{HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), newEnv(src, nil), cam, DefaultLayerConfig())
	defer layer.Dispose()

	layer.Update()
	cam.vp.X = 40
	layer.Update()

	// Old window stays; new window is added alongside it.
	_, ok := layer.Chunk(ChunkPos{})
	require.True(t, ok)
	_, ok = layer.Chunk(ChunkPos{X: 40})
	require.True(t, ok)
	require.Equal(t, 18, layer.ChunksCount())
}

func chunkPositions(items []*Chunk) []ChunkPos {
	out := make([]ChunkPos, len(items))
	for i, c := range items {
		out[i] = ChunkPos{X: c.X, Y: c.Y}
	}
	return out
}

// holdQueue parks a never-started chunk at the head of env's queue so layer
// chunks stay pending and their order can be inspected.
func holdQueue(t *testing.T, env *ChunkEnv) *Chunk {
	t.Helper()
	blocker := NewChunk(env, 1000, 1000, 10)
	t.Cleanup(blocker.Dispose)
	return blocker
}

func TestLayerSkipsRefillWithinSameChunk(t *testing.T) {
	src := &fakeSource{}
	env := newEnv(src, nil)
	blocker := holdQueue(t, env)
	cam := &fixedCamera{vp: Viewport{X: 1, Y: 1, HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), env, cam, DefaultLayerConfig())
	defer layer.Dispose()

	layer.Update()
	before := env.Queue.Items()
	require.Len(t, before, 10)
	require.Same(t, blocker, before[0])
	require.Equal(t, ChunkPos{}, chunkPositions(before)[1])

	// Same chunk, same radius: priorities are left alone even though the
	// neighbours nearest the camera are now (8,0) and (0,8).
	cam.vp.X, cam.vp.Y = 7, 7
	layer.Update()
	after := env.Queue.Items()
	require.Equal(t, before, after)
	require.Contains(t, []ChunkPos{{X: -8}, {Y: -8}}, chunkPositions(after)[2])
	require.Equal(t, 9, layer.ChunksCount())
	require.Empty(t, src.requested())
}

func TestLayerReprioritisesPendingChunks(t *testing.T) {
	src := &fakeSource{}
	env := newEnv(src, nil)
	blocker := holdQueue(t, env)
	cam := &fixedCamera{vp: Viewport{X: 4, Y: 4, HalfWidth: 0.1, HalfHeight: 0.1}}
	layer := NewLayer(context.Background(), env, cam, DefaultLayerConfig())
	defer layer.Dispose()

	layer.Update()
	require.Equal(t, ChunkPos{}, chunkPositions(env.Queue.Items())[1])

	cam.vp.X = 12
	layer.Update()

	head, ok := env.Queue.Peek()
	require.True(t, ok)
	require.Same(t, blocker, head)

	order := chunkPositions(env.Queue.Items())
	require.Len(t, order, 13, "blocker, 9 old chunks and 3 new ones at x=16")
	require.Equal(t, ChunkPos{X: 8}, order[1], "chunk under the camera goes first")
	require.Empty(t, src.requested(), "every chunk is still pending")
}
