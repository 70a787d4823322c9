package main

import (
	"fmt"
	"math"

	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/internal/pca"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// vectorImage lays a masked feature vector back out as a footprint image,
// stretching its range to 0..255. Pixels outside the mask stay black.
func vectorImage(vec []float64, mask *grid.Mask, channels int) *imgbuf.Buffer {
	out := imgbuf.New(mask.Width, mask.Height, channels)
	lo, hi := floats.Min(vec), floats.Max(vec)
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	i := 0
	px := make([]uint8, channels)
	for _, p := range mask.Points {
		for c := range px {
			px[c] = uint8(math.Round((vec[i] - lo) * scale))
			i++
		}
		out.SetPixel(p.X, p.Y, px)
	}
	return out
}

// reduce projects every cell into the subspace and back, and pastes the
// reconstructions onto a canvas in lattice order.
func reduce(proj *pca.Projector, raw *mat.Dense, layout *grid.Layout, channels int) (*imgbuf.Buffer, error) {
	if want := layout.Mask.Count() * channels; proj.Len() != want {
		return nil, fmt.Errorf("projector takes %d values per cell, layout has %d", proj.Len(), want)
	}
	canvas := imgbuf.New(layout.Width, layout.Height, channels)
	coords := make([]float64, proj.Dimensions())
	px := make([]uint8, channels)
	for ci, cell := range layout.Cells {
		if _, err := proj.Project(raw.RawRowView(ci), coords); err != nil {
			return nil, err
		}
		back, err := proj.BackProject(coords)
		if err != nil {
			return nil, err
		}
		i := 0
		for _, p := range layout.Mask.Points {
			for c := range px {
				px[c] = uint8(math.Round(math.Max(0, math.Min(255, back[i]))))
				i++
			}
			x, y := cell.Anchor.X+p.X, cell.Anchor.Y+p.Y
			if x < canvas.Width && y < canvas.Height {
				canvas.SetPixel(x, y, px)
			}
		}
	}
	return canvas, nil
}
