package bmp

import (
	"image"
	"image/color"
	"io"
)

// Large enough for the file header, a v5 header and an ALPHABITFIELDS block.
const maxHeaderBytes = fileHeaderSize + 124 + 16

// Decode reads a BMP image from r.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	grid, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return grid.Image(), nil
}

// DecodeConfig returns the dimensions of a BMP image without decoding pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxHeaderBytes))
	if err != nil {
		return image.Config{}, err
	}
	desc, err := ParseHeader(data)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      desc.Width,
		Height:     desc.Rows(),
	}, nil
}

// formatPrefix is the image.RegisterFormat pattern for m. Only "BM"
// requires zero reserved words; icons and pointers keep their hotspot there.
func formatPrefix(m Magic) string {
	if m == MagicBitmap {
		return "BM????\x00\x00\x00\x00"
	}
	return string(m)
}

func init() {
	for _, m := range magics {
		image.RegisterFormat("bmp", formatPrefix(m), Decode, DecodeConfig)
	}
}
