package tilegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/OCharnyshevich/raster-world/internal/engine/terrain"
)

// ErrClosed is returned when a transport has been shut down.
var ErrClosed = errors.New("tile generation transport closed")

// Request asks for the pixel buffer of one tile.
type Request struct {
	RequestID      uint64          `msgpack:"requestId"`
	TileX          int             `msgpack:"tileX"`
	TileY          int             `msgpack:"tileY"`
	TileResolution int             `msgpack:"tileResolution"`
	Options        terrain.Options `msgpack:"options"`
}

// Response carries the generated pixels for the request with the same id.
type Response struct {
	RequestID   uint64 `msgpack:"requestId"`
	PixelBuffer []byte `msgpack:"pixelBuffer"`
}

// Transport moves requests to a generation context and responses back.
// Responses may arrive in any order.
type Transport interface {
	Send(ctx context.Context, req Request) error
	Responses() <-chan Response
	Close() error
}

func encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
