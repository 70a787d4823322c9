// Package imgbuf provides the pixel buffer shared by every stage of the
// mosaic pipeline, plus file-backed loading and saving of images.
package imgbuf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// Buffer is an 8-bit image with 1 (grey) or 3 (RGB) interleaved channels,
// stored row by row without padding.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed buffer.
func New(width, height, channels int) *Buffer {
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Stride returns the number of bytes per row.
func (b *Buffer) Stride() int { return b.Width * b.Channels }

// Offset returns the index of the first channel of pixel (x, y) in Pix.
func (b *Buffer) Offset(x, y int) int { return y*b.Stride() + x*b.Channels }

// Pixel returns the channels of pixel (x, y). The slice aliases Pix.
func (b *Buffer) Pixel(x, y int) []uint8 {
	o := b.Offset(x, y)
	return b.Pix[o : o+b.Channels]
}

// SetPixel copies px into pixel (x, y).
func (b *Buffer) SetPixel(x, y int, px []uint8) {
	copy(b.Pix[b.Offset(x, y):], px[:b.Channels])
}

// ClampedPixel returns pixel (x, y) with coordinates clamped to the buffer,
// replicating the border.
func (b *Buffer) ClampedPixel(x, y int) []uint8 {
	return b.Pixel(clamp(x, 0, b.Width-1), clamp(y, 0, b.Height-1))
}

// Square reports whether the buffer is square.
func (b *Buffer) Square() bool { return b.Width == b.Height }

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{Width: b.Width, Height: b.Height, Channels: b.Channels}
	c.Pix = append([]uint8(nil), b.Pix...)
	return c
}

// Equal reports whether both buffers have the same shape and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return false
	}
	return b.Width == o.Width && b.Height == o.Height && b.Channels == o.Channels &&
		bytes.Equal(b.Pix, o.Pix)
}

// Crop copies the region r. Coordinates outside the buffer replicate the
// nearest border pixel, so the result is always r.Dx()×r.Dy().
func (b *Buffer) Crop(r image.Rectangle) *Buffer {
	out := New(r.Dx(), r.Dy(), b.Channels)
	for y := 0; y < out.Height; y++ {
		sy := clamp(r.Min.Y+y, 0, b.Height-1)
		if r.Min.X >= 0 && r.Max.X <= b.Width {
			copy(out.Pix[y*out.Stride():(y+1)*out.Stride()], b.Pix[b.Offset(r.Min.X, sy):b.Offset(r.Max.X-1, sy)+b.Channels])
			continue
		}
		for x := 0; x < out.Width; x++ {
			out.SetPixel(x, y, b.ClampedPixel(r.Min.X+x, sy))
		}
	}
	return out
}

// CropCenter copies a width×height region centred on the buffer.
func (b *Buffer) CropCenter(width, height int) *Buffer {
	x0 := (b.Width - width) / 2
	y0 := (b.Height - height) / 2
	return b.Crop(image.Rect(x0, y0, x0+width, y0+height))
}

// CropSquare crops the largest centred square. Square buffers are returned as is.
func (b *Buffer) CropSquare() *Buffer {
	if b.Square() {
		return b
	}
	side := min(b.Width, b.Height)
	return b.CropCenter(side, side)
}

// FromImage converts any image to a Buffer. When grayscale is set the result
// has one luma channel, otherwise three RGB channels (alpha is dropped).
func FromImage(img image.Image, grayscale bool) *Buffer {
	bounds := img.Bounds()
	ch := 3
	if grayscale {
		ch = 1
	}
	out := New(bounds.Dx(), bounds.Dy(), ch)

	switch src := img.(type) {
	case *image.Gray:
		if grayscale {
			for y := 0; y < out.Height; y++ {
				copy(out.Pix[y*out.Stride():(y+1)*out.Stride()], src.Pix[y*src.Stride:y*src.Stride+out.Width])
			}
			return out
		}
	case *image.RGBA:
		if !grayscale {
			for y := 0; y < out.Height; y++ {
				row := src.Pix[y*src.Stride:]
				for x := 0; x < out.Width; x++ {
					o := out.Offset(x, y)
					out.Pix[o] = row[x*4]
					out.Pix[o+1] = row[x*4+1]
					out.Pix[o+2] = row[x*4+2]
				}
			}
			return out
		}
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			o := out.Offset(x, y)
			if grayscale {
				out.Pix[o] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			r, g, bb, _ := c.RGBA()
			out.Pix[o] = uint8(r >> 8)
			out.Pix[o+1] = uint8(g >> 8)
			out.Pix[o+2] = uint8(bb >> 8)
		}
	}
	return out
}

// ToImage converts the buffer to an *image.Gray or *image.RGBA.
func (b *Buffer) ToImage() (image.Image, error) {
	switch b.Channels {
	case 1:
		img := image.NewGray(b.Bounds())
		copy(img.Pix, b.Pix)
		return img, nil
	case 3:
		img := image.NewRGBA(b.Bounds())
		for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
			img.Pix[j] = b.Pix[i]
			img.Pix[j+1] = b.Pix[i+1]
			img.Pix[j+2] = b.Pix[i+2]
			img.Pix[j+3] = 255
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", b.Channels)
	}
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
