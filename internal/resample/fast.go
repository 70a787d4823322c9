package resample

import (
	"image"

	"hexmosaic/internal/imgbuf"

	"golang.org/x/image/draw"
)

// scaleCatmullRom resizes through x/image/draw. It is quicker than the
// Lanczos path and is also used to prescale whole source images.
func scaleCatmullRom(src *imgbuf.Buffer, width, height int) *imgbuf.Buffer {
	gray := src.Channels == 1
	in := drawImage(src.Width, src.Height, gray)
	fill(in, src)
	dst := drawImage(width, height, gray)
	draw.CatmullRom.Scale(dst, dst.Bounds(), in, in.Bounds(), draw.Src, nil)
	return imgbuf.FromImage(dst, gray)
}

func drawImage(w, h int, gray bool) draw.Image {
	r := image.Rect(0, 0, w, h)
	if gray {
		return image.NewGray(r)
	}
	return image.NewRGBA(r)
}

func fill(dst draw.Image, src *imgbuf.Buffer) {
	switch d := dst.(type) {
	case *image.Gray:
		copy(d.Pix, src.Pix)
	case *image.RGBA:
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				px := src.Pixel(x, y)
				o := d.PixOffset(x, y)
				d.Pix[o] = px[0]
				d.Pix[o+1] = px[min(1, len(px)-1)]
				d.Pix[o+2] = px[min(2, len(px)-1)]
				d.Pix[o+3] = 255
			}
		}
	}
}

// Scale resizes src to width×height with Catmull-Rom, without gamma
// handling. Use it for large images where the Lanczos kernel would be slow.
func Scale(src *imgbuf.Buffer, width, height int) *imgbuf.Buffer {
	if src.Width == width && src.Height == height {
		return src.Clone()
	}
	return scaleCatmullRom(src, width, height)
}
