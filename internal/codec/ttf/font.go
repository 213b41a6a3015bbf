// Package ttf reads glyph outlines from TrueType (sfnt) fonts.
//
// Only the tables needed to locate and decode simple glyphs are parsed:
// the table directory, head, maxp, loca and glyf. Compound glyphs are
// reported with ErrCompoundGlyph.
package ttf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rcarmo/go-bmp/internal/codec"
	"github.com/rcarmo/go-bmp/internal/logging"
)

var (
	ErrInvalidVersion = errors.New("ttf: unsupported sfnt version")
	ErrMissingTable   = errors.New("ttf: missing required table")
	ErrTruncated      = errors.New("ttf: truncated data")
	ErrInvalidTable   = errors.New("ttf: invalid table")
	ErrGlyphIndex     = errors.New("ttf: glyph index out of range")
	ErrCompoundGlyph  = errors.New("ttf: compound glyphs are not supported")
	ErrMalformedGlyph = errors.New("ttf: malformed glyph")
)

const (
	versionTrueType = 0x00010000
	versionApple    = 0x74727565 // "true"

	headMagic     = 0x5F0F3CF5
	headMinLength = 54
	maxpMinLength = 6
)

type tableRecord struct {
	offset uint32
	length uint32
}

// Font is a parsed font. The glyph data aliases the input slice.
type Font struct {
	tables     map[string]tableRecord
	unitsPerEm uint16
	numGlyphs  int
	loca       []uint32
	glyf       []byte
}

// Parse reads the table directory and the head, maxp and loca tables.
func Parse(data []byte) (*Font, error) {
	f := &Font{}

	tables, err := readDirectory(data)
	if err != nil {
		return nil, err
	}
	f.tables = tables

	head, err := f.table(data, "head", headMinLength)
	if err != nil {
		return nil, err
	}
	locFormat, err := f.readHead(head)
	if err != nil {
		return nil, err
	}

	maxp, err := f.table(data, "maxp", maxpMinLength)
	if err != nil {
		return nil, err
	}
	// table checked maxp is at least maxpMinLength bytes.
	f.numGlyphs = int(binary.BigEndian.Uint16(maxp[4:6]))

	if f.glyf, err = f.table(data, "glyf", 0); err != nil {
		return nil, err
	}
	loca, err := f.table(data, "loca", 0)
	if err != nil {
		return nil, err
	}
	if f.loca, err = readLoca(loca, locFormat, f.numGlyphs, len(f.glyf)); err != nil {
		return nil, err
	}

	logging.Debug("ttf: %d tables, %d glyphs, %d units/em", len(f.tables), f.numGlyphs, f.unitsPerEm)
	return f, nil
}

// NumGlyphs returns the glyph count from maxp.
func (f *Font) NumGlyphs() int { return f.numGlyphs }

// UnitsPerEm returns the design grid size from head.
func (f *Font) UnitsPerEm() int { return int(f.unitsPerEm) }

// HasTable reports whether the directory lists tag.
func (f *Font) HasTable(tag string) bool {
	_, ok := f.tables[tag]
	return ok
}

func readDirectory(data []byte) (map[string]tableRecord, error) {
	c := codec.NewCursor(data)

	version, err := c.Uint32BE()
	if err != nil {
		return nil, fmt.Errorf("%w: offset table: %w", ErrTruncated, err)
	}
	if version != versionTrueType && version != versionApple {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidVersion, version)
	}
	numTables, err := c.Uint16BE()
	if err != nil {
		return nil, fmt.Errorf("%w: offset table: %w", ErrTruncated, err)
	}
	// searchRange, entrySelector, rangeShift
	if err := c.Skip(6); err != nil {
		return nil, fmt.Errorf("%w: offset table: %w", ErrTruncated, err)
	}

	tables := make(map[string]tableRecord, numTables)
	for i := 0; i < int(numTables); i++ {
		tag, err := c.Tag()
		if err != nil {
			return nil, fmt.Errorf("%w: table record %d: %w", ErrTruncated, i, err)
		}
		if err := c.Skip(4); err != nil { // checksum
			return nil, fmt.Errorf("%w: table record %d: %w", ErrTruncated, i, err)
		}
		offset, err := c.Uint32BE()
		if err != nil {
			return nil, fmt.Errorf("%w: table record %d: %w", ErrTruncated, i, err)
		}
		length, err := c.Uint32BE()
		if err != nil {
			return nil, fmt.Errorf("%w: table record %d: %w", ErrTruncated, i, err)
		}
		tables[tag] = tableRecord{offset: offset, length: length}
	}
	return tables, nil
}

// table returns the bytes of a required table.
func (f *Font) table(data []byte, tag string, minLength int) ([]byte, error) {
	rec, ok := f.tables[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, tag)
	}
	end := uint64(rec.offset) + uint64(rec.length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %s table at %d+%d past %d bytes", ErrTruncated, tag, rec.offset, rec.length, len(data))
	}
	if int(rec.length) < minLength {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrInvalidTable, tag, rec.length)
	}
	return data[rec.offset:end], nil
}

// readHead reads fixed offsets; table checked head is at least
// headMinLength bytes.
func (f *Font) readHead(head []byte) (int16, error) {
	if magic := binary.BigEndian.Uint32(head[12:16]); magic != headMagic {
		return 0, fmt.Errorf("%w: head magic 0x%08x", ErrInvalidTable, magic)
	}
	f.unitsPerEm = binary.BigEndian.Uint16(head[18:20])

	locFormat := int16(binary.BigEndian.Uint16(head[50:52])) // #nosec G115
	if locFormat != 0 && locFormat != 1 {
		return 0, fmt.Errorf("%w: indexToLocFormat %d", ErrInvalidTable, locFormat)
	}
	return locFormat, nil
}

// readLoca expands the short (halved uint16) or long (uint32) offsets.
func readLoca(loca []byte, format int16, numGlyphs, glyfLen int) ([]uint32, error) {
	c := codec.NewCursor(loca)
	offsets := make([]uint32, numGlyphs+1)
	for i := range offsets {
		if format == 0 {
			v, err := c.Uint16BE()
			if err != nil {
				return nil, fmt.Errorf("%w: loca entry %d: %w", ErrTruncated, i, err)
			}
			offsets[i] = uint32(v) * 2
		} else {
			v, err := c.Uint32BE()
			if err != nil {
				return nil, fmt.Errorf("%w: loca entry %d: %w", ErrTruncated, i, err)
			}
			offsets[i] = v
		}
		if offsets[i] > uint32(glyfLen) {
			return nil, fmt.Errorf("%w: loca entry %d = %d past glyf length %d", ErrInvalidTable, i, offsets[i], glyfLen)
		}
		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: loca entry %d decreases", ErrInvalidTable, i)
		}
	}
	return offsets, nil
}
