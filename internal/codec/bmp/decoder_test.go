package bmp

import (
	"bytes"
	"image"
	"image/color"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"
)

func TestParse_TopDownPalette(t *testing.T) {
	pal := []color.NRGBA{
		{R: 1, G: 2, B: 3, A: 255},
		{R: 4, G: 5, B: 6, A: 255},
		{R: 7, G: 8, B: 9, A: 255},
		{R: 10, G: 11, B: 12, A: 255},
	}
	data := buildBMP("BM", infoHeader40(2, -2, 8, 0, 4), nil, paletteBytes(pal...), []byte{
		0, 1, 0, 0,
		2, 3, 0, 0,
	})

	grid, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, [][]color.NRGBA{{pal[0], pal[1]}, {pal[2], pal[3]}}, grid.Rows())
}

func TestParse_RejectsNonBMP(t *testing.T) {
	_, err := Parse([]byte("\x89PNG\r\n\x1a\n0000000000000000000000"))
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, err = Parse(nil)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	dec := NewDecoder(DefaultOptions())
	data := buildBMP("BM", infoHeader40(3, 3, 24, 0, 0), nil, nil, rows([]byte{30, 200, 10, 30, 200, 10, 30, 200, 10}, 3))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grid, err := dec.Parse(data)
			if assert.NoError(t, err) {
				assert.Equal(t, teal, grid.At(2, 2))
			}
		}()
	}
	wg.Wait()
}

func TestPixelGrid(t *testing.T) {
	data := buildBMP("BM", infoHeader40(2, -1, 32, uint32(CompressionAlphaBitfields), 0),
		le(uint32(0x00FF0000), uint32(0x0000FF00), uint32(0x000000FF), uint32(0xFF000000)),
		nil,
		le(uint32(0x80102030), uint32(0xFFFFFFFF)))

	grid, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0x80, 255, 255, 255, 255}, grid.RGBA())

	img := grid.Image()
	assert.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80}, img.NRGBAAt(0, 0))
}

func TestDecodeAndDecodeConfig(t *testing.T) {
	data := buildBMP("BM", infoHeader40(5, -3, 24, 0, 0), nil, nil, rows(bytes.Repeat([]byte{0, 0, 255}, 5), 3))

	cfg, err := DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Width)
	assert.Equal(t, 3, cfg.Height)
	assert.Equal(t, color.NRGBAModel, cfg.ColorModel)

	img, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(4, 2)))

	_, err = Decode(bytes.NewReader(data[:20]))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, PhaseDIBHeader, de.Phase)
}

// allocatedDuring reports the bytes allocated while fn runs.
func allocatedDuring(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestParse_ShortPlaneFailsBeforeAllocating(t *testing.T) {
	data := buildBMP("BM", infoHeader40(30000, 30000, 24, 0, 0), nil, nil, []byte{1, 2, 3, 4})
	dec := NewDecoder(Options{})

	var err error
	allocated := allocatedDuring(func() { _, err = dec.Parse(data) })

	require.ErrorIs(t, err, ErrTruncated)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, PhasePixels, de.Phase)
	assert.Less(t, allocated, uint64(1<<20))
}

func TestParse_MaxPixels(t *testing.T) {
	endOfBitmap := []byte{0, 1}

	t.Run("tiny RLE stream declaring a huge grid", func(t *testing.T) {
		data := buildBMP("BM", infoHeader40(30000, 30000, 8, uint32(CompressionRLE8), 4), nil, paletteBytes(quad...), endOfBitmap)

		var err error
		allocated := allocatedDuring(func() { _, err = Parse(data) })

		require.ErrorIs(t, err, ErrTooLarge)
		assert.Less(t, allocated, uint64(1<<20))
	})

	t.Run("bound is on the product", func(t *testing.T) {
		dec := NewDecoder(Options{MaxPixels: 6})

		_, err := dec.Parse(buildBMP("BM", infoHeader40(3, 2, 8, uint32(CompressionRLE8), 4), nil, paletteBytes(quad...), endOfBitmap))
		require.NoError(t, err)

		_, err = dec.ParseHeader(buildBMP("BM", infoHeader40(4, 2, 8, uint32(CompressionRLE8), 4), nil, paletteBytes(quad...), endOfBitmap))
		require.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestParseWithHeader(t *testing.T) {
	data := buildBMP("BM", infoHeader40(2, -1, 24, 0, 0), nil, nil, rows([]byte{0, 0, 255, 255, 0, 0}, 1))

	desc, grid, err := NewDecoder(DefaultOptions()).ParseWithHeader(data)
	require.NoError(t, err)
	assert.Equal(t, VersionInfo, desc.Version)
	assert.Equal(t, 24, desc.BitsPerPixel)
	assert.Equal(t, []color.NRGBA{red, blue}, grid.Row(0))

	desc, grid, err = NewDecoder(DefaultOptions()).ParseWithHeader(data[:30])
	require.Error(t, err)
	assert.Nil(t, desc)
	assert.Nil(t, grid)
}

func TestImageDecode_EveryMagic(t *testing.T) {
	for _, m := range magics {
		t.Run(string(m), func(t *testing.T) {
			data := buildBMP(string(m), infoHeader40(1, 1, 24, 0, 0), nil, nil, rows([]byte{0, 255, 0}, 1))
			if m != MagicBitmap {
				// Icons and pointers store their hotspot in the reserved words.
				copy(data[6:10], []byte{3, 0, 4, 0})
			}

			img, format, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, "bmp", format)
			assert.Equal(t, green, color.NRGBAModel.Convert(img.At(0, 0)))
		})
	}
}

// Files written by golang.org/x/image/bmp must decode to the same pixels
// that package reads back.
func TestParse_MatchesXImage(t *testing.T) {
	const w, h = 7, 5

	opaque := image.NewNRGBA(image.Rect(0, 0, w, h))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	paletted := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 128, A: 255},
		color.RGBA{B: 64, A: 255},
		color.RGBA{R: 9, G: 99, B: 199, A: 255},
	})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			opaque.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 50), B: uint8(x*y + 7), A: 255})
			gray.SetGray(x, y, color.Gray{Y: uint8(x*36 + y)})
			paletted.SetColorIndex(x, y, uint8((x+y)%4))
		}
	}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"24 bpp", opaque},
		{"8 bpp gray", gray},
		{"8 bpp paletted", paletted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, xbmp.Encode(&buf, tt.img))

			want, err := xbmp.Decode(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			grid, err := Parse(buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, w, grid.Width)
			require.Equal(t, h, grid.Height)

			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					assert.Equal(t, color.NRGBAModel.Convert(want.At(x, y)), grid.At(x, y), "(%d, %d)", x, y)
				}
			}
		})
	}
}
