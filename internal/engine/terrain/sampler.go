package terrain

import "math"

// Epsilon is the tolerance below which values are treated as zero.
const Epsilon = 1e-6

// Noise backends.
const (
	NoiseSimplex = "simplex"
	NoisePerlin  = "perlin"
)

// Options control terrain synthesis. Identical options always yield identical pixels.
type Options struct {
	Seed string `json:"seed" msgpack:"seed"`
	// Fade is the width of the blend between biome colour and background, in [0, 1].
	// 0 gives hard biome edges, 1 blends across the whole range.
	Fade                  float64 `json:"fade" msgpack:"fade"`
	TransparentBackground bool    `json:"transparent_background" msgpack:"transparentBackground"`
	Noise                 string  `json:"noise" msgpack:"noise"`
	// Octaves of detail layered into the background shade. 0 and 1 both mean one.
	Octaves int `json:"octaves" msgpack:"octaves"`
}

// DefaultOptions returns options with full fade and simplex noise.
func DefaultOptions(seed string) Options {
	return Options{Seed: seed, Fade: 1, Noise: NoiseSimplex}
}

// Channels returns the number of bytes per pixel these options produce.
func (o Options) Channels() int {
	if o.TransparentBackground {
		return 4
	}
	return 3
}

// Color is one synthesised pixel.
type Color struct {
	R, G, B, A uint8
}

// layer is one noise field sampled at its own scale.
type layer struct {
	noise     Noise2D
	scale     float64
	octaves   int
	transform func(float64) float64
}

// octavePersistence halves the amplitude of each finer octave.
const octavePersistence = 0.5

func (l layer) value(x, y float64) float64 {
	var n float64
	if l.octaves > 1 {
		n = OctaveNoise2D(l.noise, x/l.scale, y/l.scale, l.octaves, octavePersistence)
	} else {
		n = l.noise.Noise2D(x/l.scale, y/l.scale)
	}
	v := transformRange(n, -1, 1, 0, 1, false)
	if l.transform != nil {
		return l.transform(v)
	}
	return v
}

// Seed offsets keep every layer independently seeded.
const (
	seedOffsetBiomes      = 0
	seedOffsetBackground  = 100
	seedOffsetBackground2 = 200
	seedOffsetColor       = 300
)

// Sampler maps world pixel coordinates to colours.
type Sampler struct {
	opts Options

	biomes      layer
	background  layer
	background2 layer
	color       layer
}

// NewSampler builds the noise layers for opts.
func NewSampler(opts Options) *Sampler {
	seed := SeedFromString(opts.Seed)
	noise := func(offset int64) Noise2D { return NewNoise(opts.Noise, seed+offset) }

	return &Sampler{
		opts: opts,
		biomes: layer{
			noise: noise(seedOffsetBiomes),
			scale: 1_000,
			transform: func(v float64) float64 {
				return transformRange(v, 0.75, 0.875, 0, 1, true)
			},
		},
		background: layer{
			noise:     noise(seedOffsetBackground),
			scale:     1,
			transform: func(v float64) float64 { return v*0.25 + 0.5 },
		},
		background2: layer{
			noise:     noise(seedOffsetBackground2),
			scale:     500,
			octaves:   opts.Octaves,
			transform: func(v float64) float64 { return v*0.6 + 0.4 },
		},
		color: layer{
			noise: noise(seedOffsetColor),
			scale: 10_000,
		},
	}
}

// Options returns the options the sampler was built with.
func (s *Sampler) Options() Options {
	return s.opts
}

// ColorAt returns the terrain colour at world pixel (x, y).
func (s *Sampler) ColorAt(x, y float64) Color {
	biome := s.biomes.value(x, y)
	ch := biomeChannels(s.color.value(-y, -x))

	background := 0.0
	if !s.opts.TransparentBackground {
		background = s.background.value(x, y) * s.background2.value(x, y)
	}

	c := Color{
		R: channelByte(s.fade(biome, background, ch[0])),
		G: channelByte(s.fade(biome, background, ch[1])),
		B: channelByte(s.fade(biome, background, ch[2])),
		A: 255,
	}
	if s.opts.TransparentBackground && c.R == 0 && c.G == 0 && c.B == 0 {
		c.A = 0
	}
	return c
}

// fade blends the biome channel towards the background near biome edges.
func (s *Sampler) fade(biome, background, channel float64) float64 {
	fade := s.opts.Fade
	if fade > Epsilon {
		if biome <= fade {
			return mix(channel, background, (fade-biome)/fade)
		}
		return channel
	}
	if biome == 0 {
		return background
	}
	return channel
}

// GenerateTile synthesises the pixel buffer of tile (tileX, tileY).
// Pixel (x, y) of the buffer samples world pixel (tileX*res+x, tileY*res+y).
func (s *Sampler) GenerateTile(tileX, tileY, resolution int) []byte {
	channels := s.opts.Channels()
	data := make([]byte, resolution*resolution*channels)
	offsetX := tileX * resolution
	offsetY := tileY * resolution

	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			c := s.ColorAt(float64(offsetX+x), float64(offsetY+y))
			i := (y*resolution + x) * channels
			data[i] = c.R
			data[i+1] = c.G
			data[i+2] = c.B
			if channels == 4 {
				data[i+3] = c.A
			}
		}
	}
	return data
}

func channelByte(v float64) uint8 {
	return uint8(clamp(math.Floor(v*256), 0, 255))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func mix(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func transformRange(v, min, max, targetMin, targetMax float64, clampResult bool) float64 {
	r := targetMin + (v-min)*(targetMax-targetMin)/(max-min)
	if clampResult {
		return clamp(r, targetMin, targetMax)
	}
	return r
}
