// Package bmp decodes Windows and OS/2 BMP files into an RGBA pixel grid.
//
// A decode is one pass over an immutable byte slice: file header, DIB
// header (eight layouts), optional bitfield block, palette, then either
// the uncompressed or the RLE4/RLE8/RLE24 pixel plane. Every failure is
// returned as a *DecodeError naming the phase; no partial image escapes.
package bmp

import (
	"fmt"

	"github.com/rcarmo/go-bmp/internal/codec"
	"github.com/rcarmo/go-bmp/internal/logging"
)

// Options bounds what a Decoder accepts.
type Options struct {
	// MaxWidth and MaxHeight reject larger images before any pixel memory
	// is allocated. Zero disables the check.
	MaxWidth  int
	MaxHeight int

	// MaxPixels bounds width × rows, the size of the grid Parse allocates.
	// RLE planes can describe a large image in a few bytes, so this is the
	// only bound on their memory. Zero disables the check.
	MaxPixels int

	// ApplyColorimetry enables the v4/v5 calibration transform.
	ApplyColorimetry bool
}

// DefaultOptions returns the limits used by Parse.
func DefaultOptions() Options {
	return Options{
		MaxWidth:         1 << 15,
		MaxHeight:        1 << 15,
		MaxPixels:        1 << 26,
		ApplyColorimetry: true,
	}
}

// Decoder parses BMP files with fixed options. It holds no per-decode
// state and is safe for concurrent use.
type Decoder struct {
	opts Options
}

// NewDecoder returns a decoder with the given options.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

var defaultDecoder = NewDecoder(DefaultOptions())

// Parse decodes a complete BMP file with DefaultOptions.
func Parse(data []byte) (*PixelGrid, error) {
	return defaultDecoder.Parse(data)
}

// ParseHeader decodes only the headers and bitfields with DefaultOptions.
func ParseHeader(data []byte) (*FileDescriptor, error) {
	return defaultDecoder.ParseHeader(data)
}

// ParseHeader runs the file header, DIB header and bitfield phases.
func (dec *Decoder) ParseHeader(data []byte) (*FileDescriptor, error) {
	desc, _, err := dec.readHeaders(data)
	return desc, err
}

func (dec *Decoder) readHeaders(data []byte) (*FileDescriptor, *codec.Cursor, error) {
	c := codec.NewCursor(data)
	desc := &FileDescriptor{}

	if err := readFileHeader(c, desc); err != nil {
		return nil, nil, phaseError(PhaseFileHeader, err)
	}
	if err := readDIBHeader(c, desc); err != nil {
		return nil, nil, phaseError(PhaseDIBHeader, err)
	}
	if err := validate(desc); err != nil {
		return nil, nil, phaseError(PhaseDIBHeader, err)
	}
	if err := dec.checkLimits(desc); err != nil {
		return nil, nil, phaseError(PhaseDIBHeader, err)
	}
	if err := readBitfields(c, desc); err != nil {
		return nil, nil, phaseError(PhaseBitfields, err)
	}

	return desc, c, nil
}

func (dec *Decoder) checkLimits(d *FileDescriptor) error {
	if dec.opts.MaxWidth > 0 && d.Width > dec.opts.MaxWidth {
		return fmt.Errorf("%w: width %d > %d", ErrTooLarge, d.Width, dec.opts.MaxWidth)
	}
	if dec.opts.MaxHeight > 0 && d.Rows() > dec.opts.MaxHeight {
		return fmt.Errorf("%w: height %d > %d", ErrTooLarge, d.Rows(), dec.opts.MaxHeight)
	}
	if dec.opts.MaxPixels > 0 && d.Width*d.Rows() > dec.opts.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, d.Width, d.Rows(), dec.opts.MaxPixels)
	}
	return nil
}

// colorimetry returns the transform to apply, or nil for pass-through.
func (dec *Decoder) colorimetry(d *FileDescriptor) *Colorimetry {
	if !dec.opts.ApplyColorimetry || d.Colorimetry == nil {
		return nil
	}
	if d.Colorimetry.degenerate() {
		logging.Debug("bmp: %s declares colorimetry with zero endpoints, assuming sRGB", d.Version)
		return nil
	}
	return d.Colorimetry
}

// Parse decodes a complete BMP file.
func (dec *Decoder) Parse(data []byte) (*PixelGrid, error) {
	_, grid, err := dec.ParseWithHeader(data)
	return grid, err
}

// ParseWithHeader decodes a complete BMP file and also returns the
// descriptor read on the way, so callers that need both parse once.
func (dec *Decoder) ParseWithHeader(data []byte) (*FileDescriptor, *PixelGrid, error) {
	desc, c, err := dec.readHeaders(data)
	if err != nil {
		return nil, nil, err
	}

	cm := dec.colorimetry(desc)

	pal, err := readPalette(c, desc)
	if err != nil {
		return nil, nil, phaseError(PhasePalette, err)
	}

	offset := int(desc.PixelOffset)
	if offset == 0 {
		logging.Debug("bmp: zero pixel offset, using end of palette %d", c.Pos())
		offset = c.Pos()
	}
	if offset < fileHeaderSize+int(desc.HeaderSize) || offset > len(data) {
		return nil, nil, phaseError(PhasePixels, fmt.Errorf("%w: %d in %d bytes", ErrBadPixelOffset, offset, len(data)))
	}

	plane := data[offset:]
	if err := checkPlaneSize(desc, plane); err != nil {
		return nil, nil, phaseError(PhasePixels, err)
	}

	p := &planeDecoder{
		desc:    desc,
		grid:    newPixelGrid(desc.Width, desc.Rows()),
		palette: pal.transform(cm),
		cm:      cm,
	}
	if desc.BitsPerPixel > 8 {
		if desc.Bitfields != nil {
			p.masks = *desc.Bitfields
		} else {
			p.masks = DefaultMasks(desc.BitsPerPixel)
		}
	}

	if desc.Compression.IsRLE() {
		err = p.decodeRLE(plane)
	} else {
		err = p.decodeUncompressed(plane)
	}
	if err != nil {
		return nil, nil, phaseError(PhasePixels, err)
	}

	logging.Debug("bmp: decoded %dx%d %d bpp %s (%s)", desc.Width, desc.Height, desc.BitsPerPixel, desc.Compression, desc.Version)
	return desc, p.grid, nil
}
