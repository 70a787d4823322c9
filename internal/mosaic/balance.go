package mosaic

import (
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/pkg/colorutil"
)

// balance moves the colour of tile towards the source patch it replaces.
// Both are compared in Lab over the mask, and the tile's pixels under the
// mask are shifted by ratio·(mean(patch) − mean(tile)). ratio 0 leaves the
// tile untouched, 1 matches the means.
func balance(tile, patch *imgbuf.Buffer, mask *grid.Mask, ratio float64) *imgbuf.Buffer {
	if ratio == 0 {
		return tile
	}
	tileLab := labUnderMask(tile, mask)
	patchLab := labUnderMask(patch, mask)
	d := colorutil.Delta(colorutil.MeanLab(patchLab), colorutil.MeanLab(tileLab), ratio)
	colorutil.Shift(tileLab, d)

	out := tile.Clone()
	for i, p := range mask.Points {
		r, g, b := colorutil.LabToRGB(tileLab[i])
		px := out.Pixel(p.X, p.Y)
		if out.Channels == 1 {
			px[0] = uint8((int(r) + int(g) + int(b) + 1) / 3)
			continue
		}
		px[0], px[1], px[2] = r, g, b
	}
	return out
}

func labUnderMask(b *imgbuf.Buffer, mask *grid.Mask) []colorutil.Lab {
	out := make([]colorutil.Lab, len(mask.Points))
	for i, p := range mask.Points {
		px := b.Pixel(p.X, p.Y)
		if b.Channels == 1 {
			out[i] = colorutil.RGBToLab(px[0], px[0], px[0])
			continue
		}
		out[i] = colorutil.RGBToLab(px[0], px[1], px[2])
	}
	return out
}
