package terrain

import (
	"math"
	"math/rand/v2"

	"github.com/aquilax/go-perlin"
	"github.com/cespare/xxhash/v2"
)

// Gradients of the 2D simplex lattice, the 12 cube edge midpoints projected onto
// the xy plane.
var grad2 = [12][2]float64{
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
	{1, 0}, {-1, 0}, {1, 0}, {-1, 0},
	{0, 1}, {0, -1}, {0, 1}, {0, -1},
}

// Noise2D is a coherent 2D noise function returning values roughly in [-1, 1].
type Noise2D interface {
	Noise2D(x, y float64) float64
}

// SeedFromString turns a textual seed into a numeric one.
func SeedFromString(seed string) int64 {
	return int64(xxhash.Sum64String(seed))
}

// NewNoise creates a seeded noise function for the named backend.
// Unknown backends fall back to simplex.
func NewNoise(backend string, seed int64) Noise2D {
	switch backend {
	case NoisePerlin:
		return perlinNoise{p: perlin.NewPerlin(2, 2, 3, seed)}
	default:
		return NewSimplex(seed)
	}
}

// Simplex is 2D simplex noise over a seeded lattice permutation. Output is in
// [-1, 1].
type Simplex struct {
	perm [512]uint8
}

const (
	skew   = 0.36602540378443864676 // (sqrt(3) - 1) / 2
	unskew = 0.21132486540518711775 // (3 - sqrt(3)) / 6
)

// NewSimplex builds the lattice permutation from seed.
func NewSimplex(seed int64) *Simplex {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>32|1))
	n := &Simplex{}
	for i, v := range rng.Perm(256) {
		n.perm[i] = uint8(v)
		n.perm[i+256] = uint8(v)
	}
	return n
}

func (n *Simplex) gradient(i, j int) [2]float64 {
	i &= 255
	j &= 255
	return grad2[int(n.perm[i+int(n.perm[j])])%12]
}

// Noise2D sums the contributions of the three corners of the simplex
// containing (x, y).
func (n *Simplex) Noise2D(x, y float64) float64 {
	s := (x + y) * skew
	ci := int(math.Floor(x + s))
	cj := int(math.Floor(y + s))

	t := float64(ci+cj) * unskew
	dx := x - float64(ci) + t
	dy := y - float64(cj) + t

	// The middle corner depends on which triangle of the cell holds the point.
	mi, mj := 0, 1
	if dx > dy {
		mi, mj = 1, 0
	}

	corners := [3]struct {
		di, dj int
		x, y   float64
	}{
		{0, 0, dx, dy},
		{mi, mj, dx - float64(mi) + unskew, dy - float64(mj) + unskew},
		{1, 1, dx - 1 + 2*unskew, dy - 1 + 2*unskew},
	}

	var sum float64
	for _, c := range corners {
		falloff := 0.5 - c.x*c.x - c.y*c.y
		if falloff <= 0 {
			continue
		}
		g := n.gradient(ci+c.di, cj+c.dj)
		falloff *= falloff
		sum += falloff * falloff * (g[0]*c.x + g[1]*c.y)
	}
	return 70 * sum
}

// OctaveNoise2D layers multiple octaves of noise.
// Returns a value roughly in [-1, 1].
func OctaveNoise2D(n Noise2D, x, y float64, octaves int, persistence float64) float64 {
	var total, maxVal float64
	frequency := 1.0
	amplitude := 1.0

	for range octaves {
		total += n.Noise2D(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2.0
	}
	return total / maxVal
}

// perlinNoise adapts go-perlin, whose output rarely leaves [-0.7, 0.7], to the
// simplex range.
type perlinNoise struct {
	p *perlin.Perlin
}

func (n perlinNoise) Noise2D(x, y float64) float64 {
	return clamp(n.p.Noise2D(x, y)*1.4, -1, 1)
}
