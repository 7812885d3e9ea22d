package terrain

import (
	"bytes"
	"testing"
)

func TestColorAtDeterministic(t *testing.T) {
	s1 := NewSampler(DefaultOptions("seed"))
	s2 := NewSampler(DefaultOptions("seed"))

	for i := 0; i < 200; i++ {
		x := float64(i*37 - 3000)
		y := float64(i*53 - 4000)
		if s1.ColorAt(x, y) != s2.ColorAt(x, y) {
			t.Fatalf("ColorAt(%v, %v) differs between identical samplers", x, y)
		}
	}
}

func TestGenerateTileDeterministic(t *testing.T) {
	opts := DefaultOptions("tiles")
	a := NewSampler(opts).GenerateTile(3, -2, 16)
	b := NewSampler(opts).GenerateTile(3, -2, 16)

	if len(a) != 16*16*3 {
		t.Fatalf("tile length = %d, want %d", len(a), 16*16*3)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical options produced different tiles")
	}
}

func TestGenerateTileMatchesColorAt(t *testing.T) {
	s := NewSampler(DefaultOptions("layout"))
	const res = 8
	tile := s.GenerateTile(-1, 2, res)

	for y := 0; y < res; y++ {
		for x := 0; x < res; x++ {
			c := s.ColorAt(float64(-1*res+x), float64(2*res+y))
			i := (y*res + x) * 3
			if tile[i] != c.R || tile[i+1] != c.G || tile[i+2] != c.B {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, tile[i:i+3], c)
			}
		}
	}
}

func TestTransparentAlphaMatte(t *testing.T) {
	opts := DefaultOptions("matte")
	opts.TransparentBackground = true
	s := NewSampler(opts)
	tile := s.GenerateTile(0, 0, 32)

	if len(tile) != 32*32*4 {
		t.Fatalf("tile length = %d, want %d", len(tile), 32*32*4)
	}
	for i := 0; i < len(tile); i += 4 {
		black := tile[i] == 0 && tile[i+1] == 0 && tile[i+2] == 0
		switch {
		case black && tile[i+3] != 0:
			t.Fatalf("black pixel %d has alpha %d, want 0", i/4, tile[i+3])
		case !black && tile[i+3] != 255:
			t.Fatalf("lit pixel %d has alpha %d, want 255", i/4, tile[i+3])
		}
	}
}

func TestFadeEdges(t *testing.T) {
	hard := NewSampler(Options{Seed: "f", Fade: 0})
	if got := hard.fade(0, 0.4, 1); got != 0.4 {
		t.Errorf("hard fade at biome 0 = %v, want background 0.4", got)
	}
	if got := hard.fade(0.01, 0.4, 1); got != 1 {
		t.Errorf("hard fade above 0 = %v, want channel 1", got)
	}

	soft := NewSampler(Options{Seed: "f", Fade: 1})
	if got := soft.fade(0.5, 0, 1); got != 0.5 {
		t.Errorf("soft fade at 0.5 = %v, want 0.5", got)
	}
	if got := soft.fade(0, 0.2, 1); got != 0.2 {
		t.Errorf("soft fade at 0 = %v, want background 0.2", got)
	}
}

func TestBiomeChannelsThresholds(t *testing.T) {
	tests := []struct {
		value float64
		want  channels
	}{
		{0, singleChannelColors[0]},
		{0.45, singleChannelColors[1]},
		{0.89, singleChannelColors[2]},
		{0.9, twoChannelColors[0]},
		{0.95, twoChannelColors[1]},
		{0.989, twoChannelColors[2]},
		{0.995, white},
		{1, white},
	}
	for _, tt := range tests {
		if got := biomeChannels(tt.value); got != tt.want {
			t.Errorf("biomeChannels(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestOctavesShapeBackgroundOnly(t *testing.T) {
	single := DefaultOptions("octaves")
	one := single
	one.Octaves = 1
	if !bytes.Equal(NewSampler(single).GenerateTile(2, 5, 16), NewSampler(one).GenerateTile(2, 5, 16)) {
		t.Fatal("octaves 0 and 1 should both mean a single octave")
	}

	detailed := single
	detailed.Octaves = 4
	a, b := NewSampler(single), NewSampler(detailed)
	differs := false
	for i := 1; i <= 100 && !differs; i++ {
		x, y := float64(i*97), float64(-i*61)
		differs = a.background2.value(x, y) != b.background2.value(x, y)
	}
	if !differs {
		t.Error("extra octaves left the background shade unchanged")
	}

	// A transparent layer has no background, so octaves cannot change it.
	single.TransparentBackground = true
	detailed.TransparentBackground = true
	if !bytes.Equal(NewSampler(single).GenerateTile(2, 5, 16), NewSampler(detailed).GenerateTile(2, 5, 16)) {
		t.Error("octaves changed a transparent layer")
	}
}
