// Package resample turns arbitrary photographs into canonical square tiles
// using a separable Lanczos filter.
package resample

import (
	"math"
	"sync"

	"hexmosaic/internal/imgbuf"
)

// Lobes is the Lanczos window size a.
const Lobes = 3

// Sinc returns sin(πx)/(πx), with Sinc(0) = 1.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

// Lanczos evaluates the Lanczos kernel sinc(x)·sinc(x/a), zero outside |x| < a.
func Lanczos(x, a float64) float64 {
	if x == 0 {
		return 1
	}
	if x <= -a || x >= a {
		return 0
	}
	return Sinc(x) * Sinc(x/a)
}

// axisKernel holds, for each destination index, the first contributing
// source index and the normalised weights of the window starting there.
type axisKernel struct {
	start   []int
	weights [][]float64
}

func newAxisKernel(srcLen, dstLen int) *axisKernel {
	scale := float64(srcLen) / float64(dstLen)
	filterScale := math.Max(scale, 1)
	support := filterScale * Lobes

	k := &axisKernel{
		start:   make([]int, dstLen),
		weights: make([][]float64, dstLen),
	}
	for t := 0; t < dstLen; t++ {
		center := (float64(t) + 0.5) * scale
		start := max(int(center-support+0.5), 0)
		stop := min(int(center+support+0.5), srcLen)
		if stop <= start {
			// Degenerate window: fall back to the nearest source sample.
			start = min(max(int(center), 0), srcLen-1)
			stop = start + 1
		}

		w := make([]float64, stop-start)
		var density float64
		for i := range w {
			phase := float64(start+i) - center + 0.5
			w[i] = Lanczos(phase/filterScale, Lobes)
			density += w[i]
		}
		if density != 0 {
			for i := range w {
				w[i] /= density
			}
		}
		k.start[t] = start
		k.weights[t] = w
	}
	return k
}

// kernelCache memoises axis kernels per (source length, destination length).
type kernelCache struct {
	mu    sync.Mutex
	table map[[2]int]*axisKernel
}

func (c *kernelCache) get(srcLen, dstLen int) *axisKernel {
	key := [2]int{srcLen, dstLen}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table == nil {
		c.table = make(map[[2]int]*axisKernel)
	}
	k, ok := c.table[key]
	if !ok {
		k = newAxisKernel(srcLen, dstLen)
		c.table[key] = k
	}
	return k
}

// resize applies the separable kernel: the per-axis weights are combined by
// outer product and applied to the clamped source window of each pixel.
func resize(src *imgbuf.Buffer, kx, ky *axisKernel, width, height int) *imgbuf.Buffer {
	ch := src.Channels
	dst := imgbuf.New(width, height, ch)
	acc := make([]float64, ch)

	for ty := 0; ty < height; ty++ {
		sy0 := ky.start[ty]
		wy := ky.weights[ty]
		for tx := 0; tx < width; tx++ {
			sx0 := kx.start[tx]
			wx := kx.weights[tx]

			for c := range acc {
				acc[c] = 0
			}
			for i, kyv := range wy {
				row := src.Pix[(sy0+i)*src.Stride():]
				for j, kxv := range wx {
					kxy := kxv * kyv
					o := (sx0 + j) * ch
					for c := 0; c < ch; c++ {
						acc[c] += kxy * float64(row[o+c])
					}
				}
			}

			o := dst.Offset(tx, ty)
			for c := 0; c < ch; c++ {
				dst.Pix[o+c] = toPixel(acc[c])
			}
		}
	}
	return dst
}

func toPixel(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 255)))
}
