package terrain

import (
	"math"
	"testing"
)

func TestSimplexDeterministic(t *testing.T) {
	ng1 := NewSimplex(12345)
	ng2 := NewSimplex(12345)

	for i := 0; i < 100; i++ {
		x := float64(i) * 0.1
		y := float64(i) * 0.2
		if ng1.Noise2D(x, y) != ng2.Noise2D(x, y) {
			t.Fatalf("Noise2D not deterministic at (%f, %f)", x, y)
		}
	}
}

func TestSimplexRange(t *testing.T) {
	ng := NewSimplex(42)

	for i := 0; i < 10000; i++ {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		v := ng.Noise2D(x, y)
		if v < -1.0 || v > 1.0 {
			t.Fatalf("Noise2D(%f, %f) = %f, out of [-1,1]", x, y, v)
		}
	}
}

func TestPerlinBackendRange(t *testing.T) {
	n := NewNoise(NoisePerlin, 7)

	for i := 0; i < 2000; i++ {
		x := float64(i)*0.37 - 50
		y := float64(i)*0.53 - 50
		v := n.Noise2D(x, y)
		if v < -1.0 || v > 1.0 {
			t.Fatalf("perlin Noise2D(%f, %f) = %f, out of [-1,1]", x, y, v)
		}
	}
}

func TestDifferentSeedsDifferentNoise(t *testing.T) {
	ng1 := NewSimplex(1)
	ng2 := NewSimplex(2)

	different := false
	for i := 0; i < 100; i++ {
		x := float64(i) * 0.1
		y := float64(i) * 0.2
		if ng1.Noise2D(x, y) != ng2.Noise2D(x, y) {
			different = true
			break
		}
	}
	if !different {
		t.Error("different seeds should produce different noise")
	}
}

func TestSeedFromStringStable(t *testing.T) {
	if SeedFromString("world") != SeedFromString("world") {
		t.Error("SeedFromString is not stable")
	}
	if SeedFromString("world") == SeedFromString("world/collision") {
		t.Error("distinct seeds hashed to the same value")
	}
}

func TestOctaveNoise2DSmoothness(t *testing.T) {
	ng := NewSimplex(456)

	prev := OctaveNoise2D(ng, 0, 0, 4, 0.5)
	step := 0.01
	for i := 1; i < 1000; i++ {
		x := float64(i) * step
		curr := OctaveNoise2D(ng, x, 0, 4, 0.5)
		diff := math.Abs(curr - prev)
		if diff > 0.1 {
			t.Fatalf("noise changed too rapidly at x=%f: diff=%f", x, diff)
		}
		prev = curr
	}
}
