// Package colorutil provides colour-space helpers used by the mosaic colour balance.
package colorutil

import (
	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"
)

// Lab is a CIE L*a*b* colour (D65), L in [0,1] as returned by go-colorful.
type Lab [3]float64

// RGBToLab converts an 8-bit sRGB triple to Lab.
func RGBToLab(r, g, b uint8) Lab {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	l, a, bb := c.Lab()
	return Lab{l, a, bb}
}

// LabToRGB converts Lab back to 8-bit sRGB, clamping out-of-gamut values.
func LabToRGB(c Lab) (r, g, b uint8) {
	return colorful.Lab(c[0], c[1], c[2]).Clamped().RGB255()
}

// MeanLab returns the per-channel mean of the given colours.
// An empty slice yields the zero colour.
func MeanLab(colors []Lab) Lab {
	if len(colors) == 0 {
		return Lab{}
	}
	ch := make([]float64, len(colors))
	var out Lab
	for k := 0; k < 3; k++ {
		for i, c := range colors {
			ch[i] = c[k]
		}
		out[k] = stat.Mean(ch, nil)
	}
	return out
}

// Delta returns ratio·(target − from) per channel.
func Delta(target, from Lab, ratio float64) Lab {
	return Lab{
		ratio * (target[0] - from[0]),
		ratio * (target[1] - from[1]),
		ratio * (target[2] - from[2]),
	}
}

// Shift adds d to every colour in place.
func Shift(colors []Lab, d Lab) {
	for i := range colors {
		colors[i][0] += d[0]
		colors[i][1] += d[1]
		colors[i][2] += d[2]
	}
}
