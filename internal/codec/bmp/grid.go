package bmp

import (
	"image"
	"image/color"
)

// PixelGrid is the decoded image, row-major with the origin at the top left.
// Pixels never written by the decoder keep the zero color.
type PixelGrid struct {
	Width  int
	Height int
	Pix    []color.NRGBA
}

func newPixelGrid(width, height int) *PixelGrid {
	return &PixelGrid{
		Width:  width,
		Height: height,
		Pix:    make([]color.NRGBA, width*height),
	}
}

// At returns the pixel at (x, y).
func (g *PixelGrid) At(x, y int) color.NRGBA {
	return g.Pix[y*g.Width+x]
}

func (g *PixelGrid) set(x, y int, c color.NRGBA) {
	g.Pix[y*g.Width+x] = c
}

// Row returns row y as a slice aliasing the grid.
func (g *PixelGrid) Row(y int) []color.NRGBA {
	return g.Pix[y*g.Width : (y+1)*g.Width]
}

// Rows returns every row, top to bottom.
func (g *PixelGrid) Rows() [][]color.NRGBA {
	rows := make([][]color.NRGBA, g.Height)
	for y := range rows {
		rows[y] = g.Row(y)
	}
	return rows
}

// RGBA returns the pixels as packed R, G, B, A bytes.
func (g *PixelGrid) RGBA() []byte {
	out := make([]byte, len(g.Pix)*4)
	for i, c := range g.Pix {
		out[i*4+0] = c.R
		out[i*4+1] = c.G
		out[i*4+2] = c.B
		out[i*4+3] = c.A
	}
	return out
}

// Image copies the grid into an *image.NRGBA.
func (g *PixelGrid) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	copy(img.Pix, g.RGBA())
	return img
}
