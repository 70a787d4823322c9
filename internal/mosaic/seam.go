package mosaic

import (
	"image"

	"hexmosaic/internal/imgbuf"

	"github.com/RoaringBitmap/roaring/v2"
)

// fillOffsets is the neighbour search order for hole filling; the first
// covered neighbour wins.
var fillOffsets = [...]image.Point{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// coverage tracks which canvas pixels have been written, by linear index.
type coverage struct {
	width, height int
	set           *roaring.Bitmap
}

func newCoverage(width, height int) *coverage {
	return &coverage{width: width, height: height, set: roaring.New()}
}

func (c *coverage) mark(x, y int) {
	if x >= 0 && y >= 0 && x < c.width && y < c.height {
		c.set.Add(uint32(y*c.width + x))
	}
}

func (c *coverage) has(x, y int) bool {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return false
	}
	return c.set.Contains(uint32(y*c.width + x))
}

// holes returns the uncovered pixels.
func (c *coverage) holes() *roaring.Bitmap {
	h := roaring.New()
	h.AddRange(0, uint64(c.width*c.height))
	h.AndNot(c.set)
	return h
}

// repairSeams copies a covered neighbour into every uncovered pixel. Each
// pass only reads pixels that were covered when it started, so fills do not
// smear across a pass. Passes repeat until nothing is left or a pass makes
// no progress (an entirely empty canvas). It returns the number of filled
// pixels.
func repairSeams(canvas *imgbuf.Buffer, cov *coverage) int {
	holes := cov.holes()
	total := 0
	for !holes.IsEmpty() {
		filled := roaring.New()
		it := holes.Iterator()
		for it.HasNext() {
			idx := it.Next()
			x, y := int(idx)%cov.width, int(idx)/cov.width
			for _, off := range fillOffsets {
				nx, ny := x+off.X, y+off.Y
				if cov.has(nx, ny) {
					canvas.SetPixel(x, y, canvas.Pixel(nx, ny))
					filled.Add(idx)
					break
				}
			}
		}
		if filled.IsEmpty() {
			break
		}
		cov.set.Or(filled)
		holes.AndNot(filled)
		total += int(filled.GetCardinality())
	}
	return total
}
