package tilegen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/OCharnyshevich/raster-world/internal/engine/terrain"
)

// Channel issues tile requests over a Transport and hands each response to the
// caller that asked for it, matched by request id. Requests go through Source
// views, one per set of terrain options.
type Channel struct {
	transport  Transport
	resolution int
	log        *slog.Logger

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan []byte
}

// NewChannel creates a Channel generating tiles of the given resolution.
func NewChannel(t Transport, resolution int, log *slog.Logger) *Channel {
	return &Channel{
		transport:  t,
		resolution: resolution,
		log:        log,
		pending:    make(map[uint64]chan []byte),
	}
}

func (c *Channel) request(ctx context.Context, opts terrain.Options, tileX, tileY int) (<-chan []byte, error) {
	id := c.nextID.Add(1)
	ch := make(chan []byte, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	err := c.transport.Send(ctx, Request{
		RequestID:      id,
		TileX:          tileX,
		TileY:          tileY,
		TileResolution: c.resolution,
		Options:        opts,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("send tile request %d: %w", id, err)
	}
	return ch, nil
}

// Source returns a view of the channel that requests tiles with opts. Views
// share the channel's transport and request ids.
func (c *Channel) Source(opts terrain.Options) *Source {
	return &Source{ch: c, opts: opts}
}

// Source requests tiles with fixed options through a Channel.
type Source struct {
	ch   *Channel
	opts terrain.Options
}

// Request asks for tile (tileX, tileY). The returned channel receives the pixel
// buffer exactly once; it is buffered so late deliveries never block.
func (s *Source) Request(ctx context.Context, tileX, tileY int) (<-chan []byte, error) {
	return s.ch.request(ctx, s.opts, tileX, tileY)
}

func (s *Source) Options() terrain.Options { return s.opts }
func (s *Source) Resolution() int          { return s.ch.resolution }
func (s *Source) Channels() int            { return s.opts.Channels() }

// Pending returns the number of requests awaiting a response.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run dispatches responses until ctx is cancelled or the transport closes.
func (c *Channel) Run(ctx context.Context) error {
	responses := c.transport.Responses()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp, ok := <-responses:
			if !ok {
				return ErrClosed
			}
			c.deliver(resp)
		}
	}
}

func (c *Channel) deliver(resp Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	delete(c.pending, resp.RequestID)
	c.mu.Unlock()

	if !ok {
		c.log.Warn("dropping tile response without pending request", "requestId", resp.RequestID)
		return
	}
	ch <- resp.PixelBuffer
}
