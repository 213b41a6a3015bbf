package ttf

import (
	"fmt"

	"github.com/rcarmo/go-bmp/internal/codec"
)

// Simple glyph flag bits.
const (
	flagOnCurve      = 0x01
	flagXShort       = 0x02
	flagYShort       = 0x04
	flagRepeat       = 0x08
	flagXSameOrPlus  = 0x10
	flagYSameOrPlus  = 0x20
	glyphHeaderBytes = 10
)

// Point is an outline point in font units.
type Point struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	OnCurve bool `json:"onCurve"`
}

// Bounds is the glyph bounding box from its header.
type Bounds struct {
	XMin int16 `json:"xMin"`
	YMin int16 `json:"yMin"`
	XMax int16 `json:"xMax"`
	YMax int16 `json:"yMax"`
}

// Glyph is a decoded simple glyph. An empty glyph, such as a space, has
// no contours and zero bounds.
type Glyph struct {
	Index    int       `json:"index"`
	Bounds   Bounds    `json:"bounds"`
	Contours [][]Point `json:"contours"`
}

// NumPoints returns the point count over all contours.
func (g *Glyph) NumPoints() int {
	n := 0
	for _, c := range g.Contours {
		n += len(c)
	}
	return n
}

// Glyph decodes glyph i.
func (f *Font) Glyph(i int) (*Glyph, error) {
	if i < 0 || i >= f.numGlyphs {
		return nil, fmt.Errorf("%w: %d of %d", ErrGlyphIndex, i, f.numGlyphs)
	}

	g := &Glyph{Index: i, Contours: [][]Point{}}
	start, end := f.loca[i], f.loca[i+1]
	if start == end {
		return g, nil
	}

	c := codec.NewCursor(f.glyf[start:end])
	var header [glyphHeaderBytes / 2]int16
	for k := range header {
		v, err := c.Int16BE()
		if err != nil {
			return nil, fmt.Errorf("%w: glyph %d header: %w", ErrTruncated, i, err)
		}
		header[k] = v
	}
	numContours := header[0]
	g.Bounds = Bounds{XMin: header[1], YMin: header[2], XMax: header[3], YMax: header[4]}

	if numContours < 0 {
		return nil, fmt.Errorf("%w: glyph %d", ErrCompoundGlyph, i)
	}

	contours, err := readSimpleGlyph(c, int(numContours))
	if err != nil {
		return nil, fmt.Errorf("glyph %d: %w", i, err)
	}
	g.Contours = contours
	return g, nil
}

func readSimpleGlyph(c *codec.Cursor, numContours int) ([][]Point, error) {
	endPts := make([]int, numContours)
	for k := range endPts {
		v, err := c.Uint16BE()
		if err != nil {
			return nil, fmt.Errorf("%w: contour end points: %w", ErrTruncated, err)
		}
		endPts[k] = int(v)
		if k > 0 && endPts[k] <= endPts[k-1] {
			return nil, fmt.Errorf("%w: contour %d ends at %d before %d", ErrMalformedGlyph, k, endPts[k], endPts[k-1])
		}
	}
	if numContours == 0 {
		return [][]Point{}, nil
	}
	numPoints := endPts[numContours-1] + 1

	insLen, err := c.Uint16BE()
	if err != nil {
		return nil, fmt.Errorf("%w: instruction length: %w", ErrTruncated, err)
	}
	if err := c.Skip(int(insLen)); err != nil {
		return nil, fmt.Errorf("%w: instructions: %w", ErrTruncated, err)
	}

	flags, err := readFlags(c, numPoints)
	if err != nil {
		return nil, err
	}
	xs, err := readCoords(c, flags, flagXShort, flagXSameOrPlus)
	if err != nil {
		return nil, fmt.Errorf("x coordinates: %w", err)
	}
	ys, err := readCoords(c, flags, flagYShort, flagYSameOrPlus)
	if err != nil {
		return nil, fmt.Errorf("y coordinates: %w", err)
	}

	contours := make([][]Point, numContours)
	p := 0
	for k, last := range endPts {
		pts := make([]Point, 0, last-p+1)
		for ; p <= last; p++ {
			pts = append(pts, Point{X: xs[p], Y: ys[p], OnCurve: flags[p]&flagOnCurve != 0})
		}
		contours[k] = pts
	}
	return contours, nil
}

// readFlags expands the run-length encoded flag array.
func readFlags(c *codec.Cursor, n int) ([]byte, error) {
	flags := make([]byte, 0, n)
	for len(flags) < n {
		f, err := c.Uint8()
		if err != nil {
			return nil, fmt.Errorf("%w: flags: %w", ErrTruncated, err)
		}
		flags = append(flags, f)
		if f&flagRepeat == 0 {
			continue
		}
		repeat, err := c.Uint8()
		if err != nil {
			return nil, fmt.Errorf("%w: flag repeat count: %w", ErrTruncated, err)
		}
		if len(flags)+int(repeat) > n {
			return nil, fmt.Errorf("%w: flag repeat overruns %d points", ErrMalformedGlyph, n)
		}
		for j := 0; j < int(repeat); j++ {
			flags = append(flags, f)
		}
	}
	return flags, nil
}

// readCoords accumulates one axis of deltas. A short delta is an unsigned
// byte whose sign comes from the same-or-positive bit; otherwise that bit
// means "unchanged" and a clear bit means a signed 16-bit delta follows.
func readCoords(c *codec.Cursor, flags []byte, short, sameOrPlus byte) ([]int, error) {
	coords := make([]int, len(flags))
	v := 0
	for i, f := range flags {
		switch {
		case f&short != 0:
			d, err := c.Uint8()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
			}
			if f&sameOrPlus != 0 {
				v += int(d)
			} else {
				v -= int(d)
			}
		case f&sameOrPlus == 0:
			d, err := c.Int16BE()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
			}
			v += int(d)
		}
		coords[i] = v
	}
	return coords, nil
}
