package features

import (
	"image"
	"math"

	"hexmosaic/internal/errs"
	"hexmosaic/internal/imgbuf"
	"hexmosaic/pkg/geometry"
)

// Luma weights applied to the red, green and blue disc averages.
var lumaWeights = [3]float64{0.299, 0.587, 0.114}

const ringSamples = 6

// RingDescriptor summarises a footprint by seven gaussian-weighted disc
// averages: one at the centre and six on a ring at half the inscribed
// radius. It has no subspace model; its vectors are matched directly.
type RingDescriptor struct {
	width, height, channels int

	centers []image.Point
	disc    []image.Point
	weights []float64
}

// NewRingDescriptor prepares the sample pattern for width×height buffers.
func NewRingDescriptor(width, height, channels int) *RingDescriptor {
	radius := float64(min(width, height)) / 2
	half := int(radius / 2)
	cx, cy := width/2, height/2

	d := &RingDescriptor{width: width, height: height, channels: channels}
	for _, p := range geometry.GenerateCirclePoints(0, 0, float64(half), ringSamples, 1) {
		r := p.Round()
		d.centers = append(d.centers, image.Pt(cx+r.X, cy+r.Y))
	}
	d.centers = append(d.centers, image.Pt(cx, cy))

	sigma := float64(half) / 2
	for y := -half; y <= half; y++ {
		for x := -half; x <= half; x++ {
			r := math.Hypot(float64(x), float64(y))
			if r > float64(half) {
				continue
			}
			d.disc = append(d.disc, image.Pt(x, y))
			d.weights = append(d.weights, gaussWeight(r, sigma))
		}
	}
	return d
}

// gaussWeight is the gaussian density at r relative to its peak.
func gaussWeight(r, sigma float64) float64 {
	if sigma == 0 {
		return 1
	}
	return math.Exp(-r * r / (2 * sigma * sigma))
}

func (d *RingDescriptor) Name() string { return "ring" }

func (d *RingDescriptor) Len() int { return len(d.centers) * d.channels }

func (d *RingDescriptor) Extract(b *imgbuf.Buffer, dst []float64) error {
	if err := checkShape(b, d.width, d.height, d.channels); err != nil {
		return err
	}
	if len(dst) != d.Len() {
		return errs.Invariantf("features: destination length %d, want %d", len(dst), d.Len())
	}
	n := float64(len(d.disc))
	for k, c := range d.centers {
		out := dst[k*d.channels : (k+1)*d.channels]
		clear(out)
		for i, off := range d.disc {
			px := b.ClampedPixel(c.X+off.X, c.Y+off.Y)
			for ch, v := range px {
				out[ch] += d.weights[i] * float64(v)
			}
		}
		for ch := range out {
			out[ch] /= n
			if d.channels == 3 {
				out[ch] *= lumaWeights[ch]
			}
		}
	}
	return nil
}
