// Package imaging holds the image post-processing shared by the server and
// the command-line converter.
package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Downscale divides both dimensions of src by factor, keeping at least
// one pixel per non-empty axis.
func Downscale(src image.Image, factor int) *image.NRGBA {
	b := src.Bounds()
	if factor < 1 {
		factor = 1
	}
	width, height := b.Dx()/factor, b.Dy()/factor
	if width == 0 && b.Dx() > 0 {
		width = 1
	}
	if height == 0 && b.Dy() > 0 {
		height = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
