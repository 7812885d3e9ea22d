package tilegen

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/OCharnyshevich/raster-world/internal/engine/terrain"
)

// Pool is an in-process Transport: a fixed set of worker goroutines synthesising
// tiles, with finished buffers kept in a cost-bounded cache.
type Pool struct {
	jobs      chan Request
	responses chan Response
	done      chan struct{}
	cache     *ristretto.Cache[uint64, []byte]
	log       *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts workers goroutines (NumCPU when workers <= 0). Generated tiles are
// cached up to cacheMaxCost bytes; a non-positive cost disables the cache.
func NewPool(workers int, cacheMaxCost int64, log *slog.Logger) (*Pool, error) {
	if workers <= 0 {
		workers = max(runtime.NumCPU(), 1)
	}

	p := &Pool{
		jobs:      make(chan Request, workers*64),
		responses: make(chan Response, workers*64),
		done:      make(chan struct{}),
		log:       log,
	}

	if cacheMaxCost > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
			NumCounters: max(10*(cacheMaxCost/4096), 1000),
			MaxCost:     cacheMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("create tile cache: %w", err)
		}
		p.cache = cache
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

// Send queues req for generation.
func (p *Pool) Send(ctx context.Context, req Request) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.jobs <- req:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses returns the channel of finished tiles. It is closed by Close.
func (p *Pool) Responses() <-chan Response {
	return p.responses
}

// Close stops the workers; queued but unstarted requests are dropped.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		close(p.responses)
		if p.cache != nil {
			p.cache.Close()
		}
	})
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()

	// One sampler per worker, rebuilt whenever the requested options change.
	var sampler *terrain.Sampler
	for {
		select {
		case <-p.done:
			return
		case req := <-p.jobs:
			if sampler == nil || sampler.Options() != req.Options {
				p.log.Debug("building terrain sampler", "seed", req.Options.Seed, "noise", req.Options.Noise)
				sampler = terrain.NewSampler(req.Options)
			}
			resp := Response{RequestID: req.RequestID, PixelBuffer: p.generate(sampler, req)}

			select {
			case p.responses <- resp:
			case <-p.done:
				return
			}
		}
	}
}

func (p *Pool) generate(sampler *terrain.Sampler, req Request) []byte {
	if p.cache == nil {
		return sampler.GenerateTile(req.TileX, req.TileY, req.TileResolution)
	}

	key := cacheKey(req)
	if data, ok := p.cache.Get(key); ok {
		return bytes.Clone(data)
	}
	data := sampler.GenerateTile(req.TileX, req.TileY, req.TileResolution)
	p.cache.Set(key, bytes.Clone(data), int64(len(data)))
	return data
}

// cacheKey hashes everything that influences the pixels of a tile.
func cacheKey(req Request) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}

	_, _ = d.WriteString(req.Options.Seed)
	_, _ = d.WriteString("\x00" + req.Options.Noise + "\x00")
	writeInt(int64(req.TileX))
	writeInt(int64(req.TileY))
	writeInt(int64(req.TileResolution))
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(req.Options.Fade))
	_, _ = d.Write(buf[:])
	if req.Options.TransparentBackground {
		_, _ = d.Write([]byte{1})
	}
	writeInt(int64(max(1, req.Options.Octaves)))
	return d.Sum64()
}
