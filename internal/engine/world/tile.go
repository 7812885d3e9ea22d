package world

import (
	"fmt"
	"math"

	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

// textureUpdateFrequency throttles re-uploads of dirty tiles to every Nth frame.
const textureUpdateFrequency = 6

// Tile is the smallest raster unit: a square pixel buffer covering one world unit.
type Tile struct {
	X, Y int

	resolution int
	channels   int
	pixels     []byte

	// Touched only from the simulation goroutine.
	dirty         bool
	updateCounter int
	registered    bool
}

func newTile(x, y, resolution, channels int, pixels []byte) (*Tile, error) {
	if want := resolution * resolution * channels; len(pixels) != want {
		return nil, fmt.Errorf("tile (%d,%d): got %d bytes, want %d", x, y, len(pixels), want)
	}
	return &Tile{
		X:          x,
		Y:          y,
		resolution: resolution,
		channels:   channels,
		pixels:     pixels,
		dirty:      true,
	}, nil
}

// Pixels returns the row-major pixel buffer. Callers must not modify it.
func (t *Tile) Pixels() []byte {
	return t.pixels
}

// Resolution returns the tile edge length in pixels.
func (t *Tile) Resolution() int {
	return t.resolution
}

// Channels returns 3 for RGB and 4 for RGBA tiles.
func (t *Tile) Channels() int {
	return t.channels
}


// Sync reports whether the tile should be re-uploaded this frame and clears the
// dirty flag when it does.
func (t *Tile) Sync(force bool) bool {
	if !t.dirty {
		return false
	}
	t.updateCounter++
	if !force && t.updateCounter < textureUpdateFrequency {
		return false
	}
	t.updateCounter = 0
	t.dirty = false
	return true
}

// PixelAt returns the pixel covering world point (x, y).
func (t *Tile) PixelAt(x, y float64) (raster.Pixel, error) {
	fx, fy := x-float64(t.X), y-float64(t.Y)
	if fx < 0 || fx >= 1 || fy < 0 || fy >= 1 {
		return raster.Pixel{}, fmt.Errorf("tile (%d,%d) at (%g,%g): %w", t.X, t.Y, x, y, raster.ErrOutOfBounds)
	}

	px := min(int(math.Floor(fx*float64(t.resolution))), t.resolution-1)
	py := min(int(math.Floor(fy*float64(t.resolution))), t.resolution-1)
	return raster.FromBuffer(t.pixels, py*t.resolution+px, t.channels), nil
}
