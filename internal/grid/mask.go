package grid

import (
	"image"
	"math"
)

// Mask marks which pixels of a cell footprint belong to the tile shape.
// Points lists the set pixels in row-major order; it is the iteration order
// used for feature vectors and compositing.
type Mask struct {
	Width, Height int
	Points        []image.Point

	bits []bool
}

// At reports whether pixel (x, y) of the footprint is part of the shape.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Count returns the number of set pixels.
func (m *Mask) Count() int { return len(m.Points) }

// Full reports whether every footprint pixel is set.
func (m *Mask) Full() bool { return len(m.Points) == m.Width*m.Height }

func newMask(w, h int, in func(x, y int) bool) *Mask {
	m := &Mask{Width: w, Height: h, bits: make([]bool, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if in(x, y) {
				m.bits[y*w+x] = true
				m.Points = append(m.Points, image.Pt(x, y))
			}
		}
	}
	return m
}

// FullMask covers a whole w×h footprint.
func FullMask(w, h int) *Mask {
	return newMask(w, h, func(int, int) bool { return true })
}

// InHexagon reports whether the offset (i, j) from the centre of a
// pointy-top hexagon with corner radius r lies inside it, given that |i| is
// already bounded by the half width. Corners point north and south.
func InHexagon(i, j, r float64) bool {
	ai := math.Abs(i)
	return ai < (j+r)*math.Sqrt(3) && -ai > (j-r)*math.Sqrt(3)
}

// BuildHexMask returns the mask of a pointy-top hexagon hexHeight pixels tall
// on a HexWidth(hexHeight)×hexHeight footprint. Pixels are tested at their
// centres, so the mask is mirror symmetric about the vertical axis.
func BuildHexMask(hexHeight int) *Mask {
	r := HexRadius(hexHeight)
	w := HexWidth(hexHeight)
	cx := float64(w) / 2
	return newMask(w, hexHeight, func(x, y int) bool {
		return InHexagon(float64(x)+0.5-cx, float64(y)+0.5-r, r)
	})
}
