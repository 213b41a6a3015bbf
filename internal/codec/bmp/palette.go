package bmp

import (
	"fmt"
	"image/color"

	"github.com/rcarmo/go-bmp/internal/codec"
	"github.com/rcarmo/go-bmp/internal/logging"
)

// Palette maps color indices to colors. Entries are stored as read; alpha is always 255.
type Palette []color.NRGBA

// lookup returns the entry for idx or ErrPaletteIndex.
func (p Palette) lookup(idx int) (color.NRGBA, error) {
	if idx >= len(p) {
		return color.NRGBA{}, fmt.Errorf("%w: index %d, palette has %d entries", ErrPaletteIndex, idx, len(p))
	}
	return p[idx], nil
}

// readPalette reads the color table that follows the header and bitfields.
// Only depths up to 8 bpp index a palette; tables attached to deeper
// images are skipped over by the pixel offset.
func readPalette(c *codec.Cursor, d *FileDescriptor) (Palette, error) {
	if d.BitsPerPixel > 8 {
		return nil, nil
	}

	count := d.PaletteEntries()
	entrySize := d.PaletteEntrySize()

	// A palette that runs into the pixel data is cut at the pixel offset,
	// down to no entries when the pixels start right after the header.
	if off := int(d.PixelOffset); off >= c.Pos() && c.Pos()+count*entrySize > off {
		fit := (off - c.Pos()) / entrySize
		logging.Warn("bmp: palette of %d entries overlaps pixel data at %d, using %d", count, off, fit)
		count = fit
	}

	raw, err := c.Bytes(count * entrySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	pal := make(Palette, count)
	for i := range pal {
		e := raw[i*entrySize:]
		pal[i] = color.NRGBA{R: e[2], G: e[1], B: e[0], A: 255}
	}
	return pal, nil
}

// transform returns a copy of the palette passed through the calibration.
func (p Palette) transform(cm *Colorimetry) Palette {
	if cm == nil {
		return p
	}
	out := make(Palette, len(p))
	for i, c := range p {
		out[i] = cm.ToSRGB(c)
	}
	return out
}
