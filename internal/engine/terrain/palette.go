package terrain

// Biome palette probabilities; they sum to 1.
const (
	probSingleChannel = 0.9
	probTwoChannels   = 0.09
	probWhite         = 0.01

	lightness = 0.33
)

// channels is a colour as per-channel intensity factors in [0, 1].
type channels [3]float64

var (
	singleChannelColors = [3]channels{
		{1, lightness, lightness}, // red
		{lightness, 1, lightness}, // green
		{lightness, lightness, 1}, // blue
	}
	twoChannelColors = [3]channels{
		{1, 1, lightness}, // yellow
		{1, lightness, 1}, // pink
		{lightness, 1, 1}, // cyan
	}
	white = channels{1, 1, 1}
)

// biomeChannels maps a biome scalar in [0, 1] to a palette colour using cumulative
// probability thresholds.
//
//	[0, 0.9)     single channel: red | green | blue
//	[0.9, 0.99)  two channels:   yellow | pink | cyan
//	[0.99, 1]    white
func biomeChannels(value float64) channels {
	pTwo := probSingleChannel + probTwoChannels

	switch {
	case value < probSingleChannel:
		return singleChannelColors[paletteIndex(value/probSingleChannel)]
	case value < pTwo:
		return twoChannelColors[paletteIndex((value-probSingleChannel)/probTwoChannels)]
	default:
		return white
	}
}

func paletteIndex(relative float64) int {
	i := int(relative * 3)
	if i < 0 {
		return 0
	}
	if i > 2 {
		return 2
	}
	return i
}
