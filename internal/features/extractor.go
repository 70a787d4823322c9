// Package features turns a cell-sized pixel buffer into the vector used for
// matching.
package features

import (
	"hexmosaic/internal/errs"
	"hexmosaic/internal/grid"
	"hexmosaic/internal/imgbuf"
)

// Extractor computes a fixed-length feature vector from a footprint buffer.
type Extractor interface {
	// Name identifies the extractor in cache file names and logs.
	Name() string

	// Len returns the length of every vector Extract produces.
	Len() int

	// Extract writes the features of b into dst, which must have length Len.
	Extract(b *imgbuf.Buffer, dst []float64) error
}

// MaskedPixels uses the raw intensities of the pixels under a mask, in mask
// order, as the feature vector.
type MaskedPixels struct {
	Mask     *grid.Mask
	Channels int
}

// NewMaskedPixels returns a raw pixel extractor for mask.
func NewMaskedPixels(mask *grid.Mask, channels int) *MaskedPixels {
	return &MaskedPixels{Mask: mask, Channels: channels}
}

func (m *MaskedPixels) Name() string { return "pixels" }

func (m *MaskedPixels) Len() int { return m.Mask.Count() * m.Channels }

func (m *MaskedPixels) Extract(b *imgbuf.Buffer, dst []float64) error {
	if err := checkShape(b, m.Mask.Width, m.Mask.Height, m.Channels); err != nil {
		return err
	}
	if len(dst) != m.Len() {
		return errs.Invariantf("features: destination length %d, want %d", len(dst), m.Len())
	}
	if m.Mask.Full() {
		// Row-major points over every pixel are the buffer's own order.
		for i, v := range b.Pix {
			dst[i] = float64(v)
		}
		return nil
	}
	i := 0
	for _, p := range m.Mask.Points {
		for _, v := range b.Pixel(p.X, p.Y) {
			dst[i] = float64(v)
			i++
		}
	}
	return nil
}

func checkShape(b *imgbuf.Buffer, w, h, ch int) error {
	if b.Width != w || b.Height != h || b.Channels != ch {
		return errs.Invariantf("features: buffer is %dx%dx%d, want %dx%dx%d",
			b.Width, b.Height, b.Channels, w, h, ch)
	}
	return nil
}
