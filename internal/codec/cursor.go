// Package codec holds the byte-level primitives shared by the image and
// font decoders.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a fixed-size field runs past the end of the input.
var ErrShortBuffer = errors.New("codec: unexpected end of data")

// Cursor reads integers from an immutable byte slice. Every read is bounds
// checked; the cursor never advances on failure.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor returns a cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.data) }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

// Seek moves the cursor to an absolute offset.
func (c *Cursor) Seek(off int) error {
	if off < 0 || off > len(c.data) {
		return fmt.Errorf("%w: seek to %d of %d", ErrShortBuffer, off, len(c.data))
	}
	c.pos = off
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	if n < 0 {
		return fmt.Errorf("codec: negative skip %d", n)
	}
	return c.Seek(c.pos + n)
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, c.pos, c.Remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16LE reads a little-endian uint16.
func (c *Cursor) Uint16LE() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int16LE reads a little-endian int16.
func (c *Cursor) Int16LE() (int16, error) {
	v, err := c.Uint16LE()
	return int16(v), err // #nosec G115
}

// Uint32LE reads a little-endian uint32.
func (c *Cursor) Uint32LE() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32LE reads a little-endian int32.
func (c *Cursor) Int32LE() (int32, error) {
	v, err := c.Uint32LE()
	return int32(v), err // #nosec G115
}

// Uint16BE reads a big-endian uint16.
func (c *Cursor) Uint16BE() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Int16BE reads a big-endian int16.
func (c *Cursor) Int16BE() (int16, error) {
	v, err := c.Uint16BE()
	return int16(v), err // #nosec G115
}

// Uint32BE reads a big-endian uint32.
func (c *Cursor) Uint32BE() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Tag reads a four-byte ASCII tag.
func (c *Cursor) Tag() (string, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
