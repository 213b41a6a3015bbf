package bmp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rcarmo/go-bmp/internal/codec"
	"github.com/rcarmo/go-bmp/internal/logging"
)

// fileHeader is BITMAPFILEHEADER.
type fileHeader struct {
	Magic    [2]byte
	Size     uint32
	Reserved uint32
	Offset   uint32
}

// dibHeader is one on-disk header layout. Each variant holds only the
// fields it encodes (the leading size field excluded) and fills in the
// unified descriptor.
type dibHeader interface {
	describe(d *FileDescriptor)
}

type coreHeader struct {
	Width    int16
	Height   int16
	Planes   uint16
	BitCount uint16
}

func (h *coreHeader) describe(d *FileDescriptor) {
	d.Version = VersionCore
	d.Width = int(h.Width)
	d.Height = int(h.Height)
	d.Planes = h.Planes
	d.BitsPerPixel = int(h.BitCount)
	d.Compression = CompressionUnset
}

// os2Header is the OS/2 2.x header cut down to its first 16 bytes.
type os2Header struct {
	Width    int32
	Height   int32
	Planes   uint16
	BitCount uint16
}

func (h *os2Header) describe(d *FileDescriptor) {
	d.Version = VersionOS2
	d.Width = int(h.Width)
	d.Height = int(h.Height)
	d.Planes = h.Planes
	d.BitsPerPixel = int(h.BitCount)
	d.Compression = CompressionUnset
}

type infoHeader struct {
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

func (h *infoHeader) describe(d *FileDescriptor) {
	d.Version = VersionInfo
	d.Width = int(h.Width)
	d.Height = int(h.Height)
	d.Planes = h.Planes
	d.BitsPerPixel = int(h.BitCount)
	d.Compression = Compression(h.Compression)
	d.ImageSize = h.SizeImage
	d.XPelsPerMeter = h.XPelsPerMeter
	d.YPelsPerMeter = h.YPelsPerMeter
	d.ColorsInTable = h.ClrUsed
	d.ColorsImportant = h.ClrImportant
}

type v2Header struct {
	Info      infoHeader
	RedMask   uint32
	GreenMask uint32
	BlueMask  uint32
}

func (h *v2Header) describe(d *FileDescriptor) {
	h.Info.describe(d)
	d.Version = VersionV2
	if d.Compression.usesBitfields() {
		masks := NewChannelMasks(h.RedMask, h.GreenMask, h.BlueMask, 0)
		d.Bitfields = &masks
	}
}

type v3Header struct {
	V2        v2Header
	AlphaMask uint32
}

func (h *v3Header) describe(d *FileDescriptor) {
	h.V2.describe(d)
	d.Version = VersionV3
	if d.Bitfields != nil {
		d.Bitfields.Alpha = newChannelMask(h.AlphaMask)
	}
}

// os2v2Header is the full 64-byte OS/2 2.x header. The trailing
// printer and halftoning fields are read and ignored.
type os2v2Header struct {
	Info          infoHeader
	Units         uint16
	Reserved      uint16
	Recording     uint16
	Rendering     uint16
	Size1         uint32
	Size2         uint32
	ColorEncoding uint32
	Identifier    uint32
}

func (h *os2v2Header) describe(d *FileDescriptor) {
	h.Info.describe(d)
	d.Version = VersionOS2V2
	// OS/2 reuses the Windows values 3 and 4 for its own codecs.
	switch d.Compression {
	case CompressionBitfields:
		d.Compression = CompressionHuffman1D
	case CompressionJPEG:
		d.Compression = CompressionRLE24
	}
}

type v4Header struct {
	V3         v3Header
	CSType     uint32
	Endpoints  [9]int32
	GammaRed   uint32
	GammaGreen uint32
	GammaBlue  uint32
}

func (h *v4Header) describe(d *FileDescriptor) {
	h.V3.describe(d)
	d.Version = VersionV4
	d.ColorSpace = ColorSpaceType(h.CSType)
	if d.ColorSpace == ColorSpaceCalibratedRGB || h.GammaRed != 0 || h.GammaGreen != 0 || h.GammaBlue != 0 {
		d.Colorimetry = decodeColorimetry(h.Endpoints, h.GammaRed, h.GammaGreen, h.GammaBlue)
	}
}

type v5Header struct {
	V4          v4Header
	Intent      uint32
	ProfileData uint32
	ProfileSize uint32
	Reserved    uint32
}

func (h *v5Header) describe(d *FileDescriptor) {
	h.V4.describe(d)
	d.Version = VersionV5
	d.Intent = h.Intent
	d.ProfileOffset = h.ProfileData
	d.ProfileSize = h.ProfileSize
}

// newDIBHeader selects the layout for a declared header size.
func newDIBHeader(size uint32) (dibHeader, error) {
	switch size {
	case 12:
		return &coreHeader{}, nil
	case 16:
		return &os2Header{}, nil
	case 40:
		return &infoHeader{}, nil
	case 52:
		return &v2Header{}, nil
	case 56:
		return &v3Header{}, nil
	case 64:
		return &os2v2Header{}, nil
	case 108:
		return &v4Header{}, nil
	case 124:
		return &v5Header{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedHeader, size)
	}
}

func readFileHeader(c *codec.Cursor, d *FileDescriptor) error {
	raw, err := c.Bytes(fileHeaderSize)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	var fh fileHeader
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &fh); err != nil {
		return err
	}

	d.Magic = Magic(fh.Magic[:])
	if !d.Magic.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMagic, fh.Magic[:])
	}
	d.FileSize = fh.Size
	d.PixelOffset = fh.Offset
	return nil
}

// readDIBHeader consumes the size tag and the header it announces.
func readDIBHeader(c *codec.Cursor, d *FileDescriptor) error {
	size, err := c.Uint32LE()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	h, err := newDIBHeader(size)
	if err != nil {
		return err
	}
	raw, err := c.Bytes(int(size) - 4)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, h); err != nil {
		return err
	}

	d.HeaderSize = size
	h.describe(d)
	return nil
}

// readBitfields reads the mask block that follows a 40-byte header when
// the compression declares explicit bitfields.
func readBitfields(c *codec.Cursor, d *FileDescriptor) error {
	if d.Version != VersionInfo || !d.Compression.usesBitfields() {
		return nil
	}

	count := 3
	if d.Compression == CompressionAlphaBitfields {
		count = 4
	}
	var m [4]uint32
	for i := 0; i < count; i++ {
		v, err := c.Uint32LE()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		m[i] = v
	}

	masks := NewChannelMasks(m[0], m[1], m[2], m[3])
	d.Bitfields = &masks
	return nil
}

// validate enforces the hard failures and applies the tolerated fixes.
func validate(d *FileDescriptor) error {
	if d.Width < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeWidth, d.Width)
	}

	switch d.BitsPerPixel {
	case 1, 2, 4, 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidBitDepth, d.BitsPerPixel)
	}

	switch d.Compression {
	case CompressionUnset, CompressionRGB:
	case CompressionRLE8:
		if d.BitsPerPixel != 8 {
			return fmt.Errorf("%w: %s at %d bpp", ErrCompressionDepth, d.Compression, d.BitsPerPixel)
		}
	case CompressionRLE4:
		if d.BitsPerPixel != 4 {
			return fmt.Errorf("%w: %s at %d bpp", ErrCompressionDepth, d.Compression, d.BitsPerPixel)
		}
	case CompressionRLE24:
		if d.BitsPerPixel != 24 {
			return fmt.Errorf("%w: %s at %d bpp", ErrCompressionDepth, d.Compression, d.BitsPerPixel)
		}
	case CompressionBitfields, CompressionAlphaBitfields:
		if d.BitsPerPixel < 16 {
			return fmt.Errorf("%w: %s at %d bpp", ErrCompressionDepth, d.Compression, d.BitsPerPixel)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCompression, d.Compression)
	}

	if d.Planes != 1 {
		logging.Debug("bmp: header declares %d planes, treating as 1", d.Planes)
	}

	if d.BitsPerPixel <= maxPaletteCheckBPP && d.ColorsInTable > 1<<uint(d.BitsPerPixel) {
		logging.Warn("bmp: palette count %d exceeds 2^%d, resetting to 0", d.ColorsInTable, d.BitsPerPixel)
		d.ColorsInTable = 0
	}

	return nil
}
