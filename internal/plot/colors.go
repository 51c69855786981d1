package plot

import (
	"image/color"

	"gonum.org/v1/plot/palette/brewer"
)

// rdYlGn holds the stops of the 11-class ColorBrewer RdYlGn scheme, red first.
var rdYlGn = mustPalette("RdYlGn", 11)

func mustPalette(name string, n int) []color.Color {
	p, err := brewer.GetPalette(brewer.TypeDiverging, name, n)
	if err != nil {
		panic(err)
	}
	return p.Colors()
}

// Colors returns n colours sampled evenly from RdYlGn in reverse order, so
// the first series is green and the last is red.
func Colors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	out := make([]color.Color, n)
	for i := 0; i < n; i++ {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[n-1-i] = sample(rdYlGn, t)
	}
	return out
}

// sample interpolates linearly between the stops at position t in [0, 1].
func sample(stops []color.Color, t float64) color.Color {
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return toNRGBA(stops[len(stops)-1])
	}
	frac := pos - float64(i)
	a, b := toNRGBA(stops[i]), toNRGBA(stops[i+1])
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*frac + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
