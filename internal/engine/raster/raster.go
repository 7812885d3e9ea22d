package raster

import "errors"

var (
	// ErrNotReady is returned when pixels are requested from a source whose data
	// has not been generated yet.
	ErrNotReady = errors.New("raster source not ready")
	// ErrOutOfBounds is returned for coordinates outside a source's extent.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
)

// Pixel is a single RGB or RGBA sample.
// Channels is 3 or 4; for 3-channel pixels A is always 255.
type Pixel struct {
	R, G, B, A uint8
	Channels   uint8
}

// Solid reports whether the pixel blocks movement.
// RGBA pixels are solid when alpha is non-zero, RGB pixels when any channel is lit.
func (p Pixel) Solid() bool {
	if p.Channels == 4 {
		return p.A != 0
	}
	return p.R != 0 || p.G != 0 || p.B != 0
}

// FromBuffer reads the pixel at index i (in pixels) of a packed buffer.
func FromBuffer(buf []byte, i, channels int) Pixel {
	off := i * channels
	p := Pixel{R: buf[off], G: buf[off+1], B: buf[off+2], A: 255, Channels: uint8(channels)}
	if channels == 4 {
		p.A = buf[off+3]
	}
	return p
}

// Source answers pixel queries by world coordinate.
type Source interface {
	PixelAt(x, y float64) (Pixel, error)
}
