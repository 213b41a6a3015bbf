package bmp

import (
	"fmt"
	"slices"
)

// Magic is the two-byte signature at the start of the file header.
type Magic string

const (
	MagicBitmap       Magic = "BM"
	MagicBitmapArray  Magic = "BA"
	MagicColorIcon    Magic = "CI"
	MagicColorPointer Magic = "CP"
	MagicIcon         Magic = "IC"
	MagicPointer      Magic = "PT"
)

var magics = []Magic{MagicBitmap, MagicBitmapArray, MagicColorIcon, MagicColorPointer, MagicIcon, MagicPointer}

const (
	fileHeaderSize = 14

	// Palette counts above 2^bpp are reset only up to this depth.
	maxPaletteCheckBPP = 24
)

func (m Magic) valid() bool {
	return slices.Contains(magics, m)
}

// HeaderVersion tags which DIB header layout the file uses.
type HeaderVersion int

// Header sizes in bytes: core 12, OS/2 16, info 40, v2 52, v3 56,
// OS/2 2.x 64, v4 108, v5 124.
const (
	VersionCore HeaderVersion = iota
	VersionOS2
	VersionInfo
	VersionV2
	VersionV3
	VersionOS2V2
	VersionV4
	VersionV5
)

var versionNames = map[HeaderVersion]string{
	VersionCore:  "BITMAPCOREHEADER",
	VersionOS2:   "OS22XBITMAPHEADER16",
	VersionInfo:  "BITMAPINFOHEADER",
	VersionV2:    "BITMAPV2INFOHEADER",
	VersionV3:    "BITMAPV3INFOHEADER",
	VersionOS2V2: "OS22XBITMAPHEADER",
	VersionV4:    "BITMAPV4HEADER",
	VersionV5:    "BITMAPV5HEADER",
}

func (v HeaderVersion) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return fmt.Sprintf("HeaderVersion(%d)", int(v))
}

func (v HeaderVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Compression is the biCompression value, after the OS/2 remapping.
type Compression int64

const (
	CompressionRGB            Compression = 0
	CompressionRLE8           Compression = 1
	CompressionRLE4           Compression = 2
	CompressionBitfields      Compression = 3
	CompressionJPEG           Compression = 4
	CompressionPNG            Compression = 5
	CompressionAlphaBitfields Compression = 6

	// Values that have no Windows enum of their own.
	CompressionUnset     Compression = -1    // core and 16-byte OS/2 headers carry no field
	CompressionRLE24     Compression = 0x104 // OS/2 value 4
	CompressionHuffman1D Compression = 0x103 // OS/2 value 3
)

func (c Compression) String() string {
	switch c {
	case CompressionRGB:
		return "BI_RGB"
	case CompressionRLE8:
		return "BI_RLE8"
	case CompressionRLE4:
		return "BI_RLE4"
	case CompressionBitfields:
		return "BI_BITFIELDS"
	case CompressionJPEG:
		return "BI_JPEG"
	case CompressionPNG:
		return "BI_PNG"
	case CompressionAlphaBitfields:
		return "BI_ALPHABITFIELDS"
	case CompressionUnset:
		return "none"
	case CompressionRLE24:
		return "BI_RLE24"
	case CompressionHuffman1D:
		return "BI_HUFFMAN1D"
	default:
		return fmt.Sprintf("Compression(%d)", int64(c))
	}
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsRLE reports whether the pixel plane is a run-length token stream.
func (c Compression) IsRLE() bool {
	return c == CompressionRLE4 || c == CompressionRLE8 || c == CompressionRLE24
}

func (c Compression) usesBitfields() bool {
	return c == CompressionBitfields || c == CompressionAlphaBitfields
}

// ColorSpaceType is the bV4CSType field.
type ColorSpaceType uint32

const (
	ColorSpaceCalibratedRGB   ColorSpaceType = 0
	ColorSpaceSRGB            ColorSpaceType = 0x73524742 // 'sRGB'
	ColorSpaceWindows         ColorSpaceType = 0x57696E20 // 'Win '
	ColorSpaceProfileLinked   ColorSpaceType = 0x4C494E4B // 'LINK'
	ColorSpaceProfileEmbedded ColorSpaceType = 0x4D424544 // 'MBED'
)

func (t ColorSpaceType) String() string {
	switch t {
	case ColorSpaceCalibratedRGB:
		return "calibrated"
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceWindows:
		return "windows"
	case ColorSpaceProfileLinked:
		return "profile-linked"
	case ColorSpaceProfileEmbedded:
		return "profile-embedded"
	}
	return fmt.Sprintf("0x%08x", uint32(t))
}

func (t ColorSpaceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// FileDescriptor is the unified view of every header variant.
type FileDescriptor struct {
	Magic           Magic         `json:"magic"`
	FileSize        uint32        `json:"fileSize"`
	PixelOffset     uint32        `json:"pixelOffset"`
	HeaderSize      uint32        `json:"headerSize"`
	Version         HeaderVersion `json:"version"`
	Width           int           `json:"width"`
	Height          int           `json:"height"` // negative means top-down
	Planes          uint16        `json:"planes"`
	BitsPerPixel    int           `json:"bitsPerPixel"`
	Compression     Compression   `json:"compression"`
	XPelsPerMeter   int32         `json:"xPelsPerMeter"`
	YPelsPerMeter   int32         `json:"yPelsPerMeter"`
	ImageSize       uint32        `json:"imageSize"`
	ColorsInTable   uint32        `json:"colorsInTable"`
	ColorsImportant uint32        `json:"colorsImportant"`

	// Bitfields holds explicitly declared channel masks, nil when the
	// depth defaults apply.
	Bitfields *ChannelMasks `json:"bitfields,omitempty"`

	ColorSpace    ColorSpaceType `json:"colorSpace"`
	Colorimetry   *Colorimetry   `json:"colorimetry,omitempty"`
	Intent        uint32         `json:"intent,omitempty"`
	ProfileOffset uint32         `json:"profileOffset,omitempty"`
	ProfileSize   uint32         `json:"profileSize,omitempty"`
}

// TopDown reports whether the first stored row is the top of the image.
func (d *FileDescriptor) TopDown() bool { return d.Height < 0 }

// Rows returns |Height|.
func (d *FileDescriptor) Rows() int {
	if d.Height < 0 {
		return -d.Height
	}
	return d.Height
}

// PaletteEntries is the number of palette entries the decoder expects:
// the declared count, or 2^bpp for depths up to 8 when none is declared.
func (d *FileDescriptor) PaletteEntries() int {
	if d.ColorsInTable != 0 {
		return int(d.ColorsInTable)
	}
	if d.BitsPerPixel <= 8 {
		return 1 << uint(d.BitsPerPixel)
	}
	return 0
}

// PaletteEntrySize is 3 for the core header and 4 for everything later.
func (d *FileDescriptor) PaletteEntrySize() int {
	if d.Version == VersionCore {
		return 3
	}
	return 4
}

// Stride is the padded byte length of one uncompressed row.
func (d *FileDescriptor) Stride() int {
	return ((d.Width*d.BitsPerPixel + 31) / 32) * 4
}
