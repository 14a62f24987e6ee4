package sigview

import (
	"fmt"
	"math"
)

// Normalize rescales seq into [0, 1] using min-max scaling. The returned slice
// always has the same length as seq.
//
// If every value is equal, an all-zero slice is returned together with
// ErrDegenerateSequence. An empty seq returns ErrEmptySequence.
func Normalize(seq []float64) ([]float64, error) {
	out := make([]float64, len(seq))
	if len(seq) == 0 {
		return out, ErrEmptySequence
	}

	min, max := MinMax(seq)

	delta := max - min
	if delta == 0 {
		return out, ErrDegenerateSequence
	}

	for i, v := range seq {
		out[i] = (v - min) / delta
	}

	return out, nil
}

// MinMax returns the smallest and largest values of seq. NaN is returned for
// both if seq is empty.
func MinMax(seq []float64) (min, max float64) {
	if len(seq) == 0 {
		return math.NaN(), math.NaN()
	}

	min, max = seq[0], seq[0]
	for _, v := range seq[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	return
}

// Color is a display color with an alpha channel from 0 to 1.
type Color struct {
	R, G, B uint8
	A       float64
}

// String formats the color as a CSS rgba() value.
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", c.R, c.G, c.B, c.A)
}

// Hex returns the color without alpha packed as 0xRRGGBB.
func (c Color) Hex() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Palette is the fixed list of trace colors: green, red, blue and orange.
var Palette = [4]Color{
	{R: 0, G: 128, B: 0, A: .8},
	{R: 152, G: 0, B: 0, A: .8},
	{R: 0, G: 0, B: 255, A: .8},
	{R: 255, G: 168, B: 0, A: .8},
}

// ColorFor returns the palette color for the trace at the given index. Colors
// repeat every len(Palette) traces. Negative indices are treated as their
// absolute value.
func ColorFor(index int) Color {
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}
