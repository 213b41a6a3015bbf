package bmp

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

// le packs fixed-size values little-endian.
func le(vals ...interface{}) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// infoFields is the 36-byte body of a BITMAPINFOHEADER after the size field.
func infoFields(width, height int32, bpp uint16, compression, clrUsed uint32) []byte {
	return le(width, height, uint16(1), bpp, compression, uint32(0), int32(2835), int32(2835), clrUsed, uint32(0))
}

// dib prefixes the size tag and zero-pads the body to size.
func dib(size uint32, body ...[]byte) []byte {
	h := concat(le(size), concat(body...))
	if len(h) > int(size) {
		panic("dib body longer than declared size")
	}
	return append(h, make([]byte, int(size)-len(h))...)
}

func infoHeader40(width, height int32, bpp uint16, compression, clrUsed uint32) []byte {
	return dib(40, infoFields(width, height, bpp, compression, clrUsed))
}

// v4Fields appends masks, color space, endpoints and gammas to an info body.
func v4Fields(width, height int32, bpp uint16, compression uint32, masks [4]uint32, csType uint32, endpoints [9]int32, gammas [3]uint32) []byte {
	return concat(
		infoFields(width, height, bpp, compression, 0),
		le(masks, csType, endpoints, gammas),
	)
}

// buildBMP assembles a file with the pixel offset pointing just past the palette.
func buildBMP(magic string, header, extra, palette, pixels []byte) []byte {
	offset := fileHeaderSize + len(header) + len(extra) + len(palette)
	total := offset + len(pixels)
	return concat([]byte(magic), le(uint32(total), uint32(0), uint32(offset)), header, extra, palette, pixels)
}

// paletteBytes encodes BGRX entries.
func paletteBytes(colors ...color.NRGBA) []byte {
	var out []byte
	for _, c := range colors {
		out = append(out, c.B, c.G, c.R, 0)
	}
	return out
}

// rows repeats one unpadded row n times, padding each to a 4-byte boundary.
func rows(row []byte, n int) []byte {
	stride := (len(row) + 3) &^ 3
	var out []byte
	for i := 0; i < n; i++ {
		r := make([]byte, stride)
		copy(r, row)
		out = append(out, r...)
	}
	return out
}

var (
	black = color.NRGBA{A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	teal  = color.NRGBA{R: 10, G: 200, B: 30, A: 255}
	unset = color.NRGBA{}
	quad  = []color.NRGBA{red, green, blue, white}

	srgbD65 = [9]int32{
		fx(0.4124), fx(0.2126), fx(0.0193),
		fx(0.3576), fx(0.7152), fx(0.1192),
		fx(0.1805), fx(0.0722), fx(0.9505),
	}
	identityEndpoints = [9]int32{fx(1), 0, 0, 0, fx(1), 0, 0, 0, fx(1)}
)

// fx encodes a 2.30 fixed-point value.
func fx(v float64) int32 { return int32(v * (1 << 30)) }

const gammaOne = 1 << 16
