package main

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"hexmosaic/internal/imgbuf"

	"golang.org/x/image/vector"
)

// drawTile paints one to three antialiased gray lines of random width on a
// white square.
func drawTile(rng *rand.Rand, size int) *imgbuf.Buffer {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	n := 1 + rng.IntN(3)
	for i := 0; i < n; i++ {
		p1 := [2]float32{float32(rng.IntN(size + 1)), float32(rng.IntN(size + 1))}
		p2 := [2]float32{float32(rng.IntN(size + 1)), float32(rng.IntN(size + 1))}
		width := float32(1 + rng.IntN(10))
		v := uint8(rng.IntN(256))
		strokeLine(img, p1, p2, width, color.RGBA{v, v, v, 255})
	}
	return imgbuf.FromImage(img, false)
}

// strokeLine fills the rectangle of the given width around the segment p1-p2.
func strokeLine(dst draw.Image, p1, p2 [2]float32, width float32, c color.Color) {
	dx, dy := p2[0]-p1[0], p2[1]-p1[1]
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		// Degenerate segment: a square dot.
		p2[0] += width
		dx, dy, l = width, 0, width
	}
	nx, ny := -dy/l*width/2, dx/l*width/2

	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.MoveTo(p1[0]+nx, p1[1]+ny)
	z.LineTo(p2[0]+nx, p2[1]+ny)
	z.LineTo(p2[0]-nx, p2[1]-ny)
	z.LineTo(p1[0]-nx, p1[1]-ny)
	z.ClosePath()
	z.Draw(dst, b, image.NewUniform(c), image.Point{})
}
