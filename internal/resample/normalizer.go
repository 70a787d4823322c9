package resample

import (
	"math"

	"hexmosaic/internal/imgbuf"
)

// Options toggles the steps around the resize.
type Options struct {
	// Crop centre-crops the source to a square before resizing.
	Crop bool
	// Gamma, when not 1, is applied as p' = 255·(p/255)^Gamma before the
	// resize and inverted (1/Gamma) after it.
	Gamma float64
	// Fast replaces the Lanczos kernel with Catmull-Rom from x/image/draw.
	Fast bool
}

// DefaultOptions crops to a square and leaves gamma untouched.
func DefaultOptions() Options {
	return Options{Crop: true, Gamma: 1}
}

// Normalizer produces canonical tiles. It owns its kernel tables, so one
// Normalizer may be shared by concurrent crawl workers.
type Normalizer struct {
	opts    Options
	kernels kernelCache
	forward [256]uint8
	inverse [256]uint8
}

// NewNormalizer creates a Normalizer. A zero or negative gamma is treated as 1.
func NewNormalizer(opts Options) *Normalizer {
	if opts.Gamma <= 0 {
		opts.Gamma = 1
	}
	n := &Normalizer{opts: opts}
	n.forward = gammaTable(opts.Gamma)
	n.inverse = gammaTable(1 / opts.Gamma)
	return n
}

// Resize resamples src to size×size. The source is expected to be at least
// size in both axes; a source that already has that shape is returned as an
// unchanged copy.
func (n *Normalizer) Resize(src *imgbuf.Buffer, size int) *imgbuf.Buffer {
	return n.ResizeTo(src, size, size)
}

// ResizeTo resamples src to width×height.
func (n *Normalizer) ResizeTo(src *imgbuf.Buffer, width, height int) *imgbuf.Buffer {
	if src.Width == width && src.Height == height {
		return src.Clone()
	}
	if n.opts.Fast {
		return scaleCatmullRom(src, width, height)
	}
	kx := n.kernels.get(src.Width, width)
	ky := n.kernels.get(src.Height, height)
	return resize(src, kx, ky, width, height)
}

// Normalize runs the configured pipeline: optional crop, optional gamma,
// Lanczos resize to size×size, inverse gamma.
func (n *Normalizer) Normalize(src *imgbuf.Buffer, size int) *imgbuf.Buffer {
	img := src
	if n.opts.Crop {
		img = img.CropSquare()
	}
	gamma := n.opts.Gamma != 1
	if gamma {
		img = applyTable(img, &n.forward)
	}
	img = n.Resize(img, size)
	if gamma {
		img = applyTable(img, &n.inverse)
	}
	return img
}

func gammaTable(g float64) [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = toPixel(255 * math.Pow(float64(i)/255, g))
	}
	return t
}

func applyTable(src *imgbuf.Buffer, t *[256]uint8) *imgbuf.Buffer {
	out := src.Clone()
	for i, p := range out.Pix {
		out.Pix[i] = t[p]
	}
	return out
}
