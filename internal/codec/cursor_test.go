package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_LittleEndian(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	v32, err := c.Uint32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v32)

	v16, err := c.Int16LE()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v16)

	i32, err := c.Int32LE()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i32)
	assert.Equal(t, 0, c.Remaining())
}

func TestCursor_BigEndian(t *testing.T) {
	c := NewCursor([]byte{0x00, 0x01, 0x00, 0x00, 0xFF, 0xF0, 'g', 'l', 'y', 'f'})

	v32, err := c.Uint32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00010000), v32)

	i16, err := c.Int16BE()
	require.NoError(t, err)
	assert.Equal(t, int16(-16), i16)

	tag, err := c.Tag()
	require.NoError(t, err)
	assert.Equal(t, "glyf", tag)
}

func TestCursor_ShortReadDoesNotAdvance(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03})

	_, err := c.Uint32LE()
	require.ErrorIs(t, err, ErrShortBuffer)
	assert.Equal(t, 0, c.Pos())

	v, err := c.Uint16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)
}

func TestCursor_SeekAndSkip(t *testing.T) {
	c := NewCursor(make([]byte, 8))

	require.NoError(t, c.Seek(6))
	assert.Equal(t, 2, c.Remaining())
	require.ErrorIs(t, c.Seek(9), ErrShortBuffer)
	require.ErrorIs(t, c.Skip(3), ErrShortBuffer)
	require.Error(t, c.Skip(-1))
	require.NoError(t, c.Skip(2))
	assert.Equal(t, 8, c.Pos())

	_, err := c.Bytes(-1)
	require.Error(t, err)
}
