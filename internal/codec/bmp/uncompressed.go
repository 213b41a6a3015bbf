package bmp

import (
	"fmt"
	"image/color"
)

// planeDecoder carries what the pixel strategies need from the header phases.
type planeDecoder struct {
	desc    *FileDescriptor
	grid    *PixelGrid
	palette Palette
	masks   ChannelMasks
	cm      *Colorimetry
}

// dstRow maps the n-th stored row to its grid row.
func (p *planeDecoder) dstRow(n int) int {
	if p.desc.TopDown() {
		return n
	}
	return p.grid.Height - 1 - n
}

// uncompressedSize is the number of plane bytes required, allowing the
// padding of the final row to be missing.
func uncompressedSize(d *FileDescriptor) int {
	rows := d.Rows()
	if rows == 0 || d.Width == 0 {
		return 0
	}
	return d.Stride()*(rows-1) + (d.Width*d.BitsPerPixel+7)/8
}

// checkPlaneSize runs before the grid is allocated so a short file cannot
// force an allocation sized by its declared dimensions.
func checkPlaneSize(d *FileDescriptor, plane []byte) error {
	if d.Compression.IsRLE() {
		return nil
	}
	if need := uncompressedSize(d); len(plane) < need {
		return fmt.Errorf("%w: pixel plane has %d bytes, need %d", ErrTruncated, len(plane), need)
	}
	return nil
}

// decodeUncompressed expects a plane already accepted by checkPlaneSize.
func (p *planeDecoder) decodeUncompressed(plane []byte) error {
	stride := p.desc.Stride()
	for n := 0; n < p.grid.Height; n++ {
		start := n * stride
		end := start + stride
		if end > len(plane) {
			end = len(plane)
		}
		row := plane[start:end]
		y := p.dstRow(n)

		var err error
		if p.desc.BitsPerPixel <= 8 {
			err = p.indexedRow(row, y)
		} else {
			p.packedRow(row, y)
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
	}
	return nil
}

// indexedRow unpacks 8/bpp palette indices per byte, most significant bits first.
func (p *planeDecoder) indexedRow(row []byte, y int) error {
	bpp := p.desc.BitsPerPixel
	mask := byte(0xFF >> uint(8-bpp))
	for x := 0; x < p.grid.Width; x++ {
		bit := x * bpp
		shift := uint(8 - bpp - bit%8)
		idx := (row[bit/8] >> shift) & mask
		c, err := p.palette.lookup(int(idx))
		if err != nil {
			return err
		}
		p.grid.set(x, y, c)
	}
	return nil
}

// packedRow reads little-endian 16, 24 or 32 bit pixels and applies the masks.
func (p *planeDecoder) packedRow(row []byte, y int) {
	bytesPerPixel := p.desc.BitsPerPixel / 8
	for x := 0; x < p.grid.Width; x++ {
		b := row[x*bytesPerPixel:]
		var v uint32
		switch bytesPerPixel {
		case 2:
			v = uint32(b[0]) | uint32(b[1])<<8
		case 3:
			v = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		default:
			v = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		}
		p.grid.set(x, y, p.direct(p.masks.Extract(v)))
	}
}

func (p *planeDecoder) direct(c color.NRGBA) color.NRGBA {
	if p.cm == nil {
		return c
	}
	return p.cm.ToSRGB(c)
}
