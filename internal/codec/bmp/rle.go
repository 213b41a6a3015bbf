package bmp

import (
	"fmt"
	"image/color"

	"github.com/rcarmo/go-bmp/internal/codec"
	"github.com/rcarmo/go-bmp/internal/logging"
)

// RLE escape codes, the second byte of a (0, n) pair.
const (
	rleEndOfLine   = 0x00
	rleEndOfBitmap = 0x01
	rleDelta       = 0x02
)

// rleState is the cursor threaded through the token loop. y counts stored
// rows, so it always advances; dstRow maps it onto the grid.
type rleState struct {
	*planeDecoder
	src *codec.Cursor
	x   int
	y   int
}

func (p *planeDecoder) decodeRLE(plane []byte) error {
	r := &rleState{planeDecoder: p, src: codec.NewCursor(plane)}
	return r.run()
}

func (r *rleState) run() error {
	for {
		if r.src.Remaining() == 0 {
			if r.y >= r.grid.Height {
				logging.Debug("bmp: RLE stream ended after the last row without end-of-bitmap")
				return nil
			}
			return fmt.Errorf("%w: RLE stream ended at row %d", ErrTruncated, r.y)
		}

		count, err := r.next()
		if err != nil {
			return err
		}
		if count > 0 {
			if err := r.encodedRun(int(count)); err != nil {
				return err
			}
			continue
		}

		code, err := r.next()
		if err != nil {
			return err
		}
		switch code {
		case rleEndOfLine:
			r.x = 0
			r.y++
		case rleEndOfBitmap:
			return nil
		case rleDelta:
			dx, err := r.next()
			if err != nil {
				return err
			}
			dy, err := r.next()
			if err != nil {
				return err
			}
			r.x += int(dx)
			r.y += int(dy)
		default:
			if err := r.absoluteRun(int(code)); err != nil {
				return err
			}
		}
	}
}

func (r *rleState) next() (byte, error) {
	b, err := r.src.Uint8()
	if err != nil {
		return 0, fmt.Errorf("%w: RLE token at offset %d: %w", ErrTruncated, r.src.Pos(), err)
	}
	return b, nil
}

func (r *rleState) take(n int) ([]byte, error) {
	b, err := r.src.Bytes(n)
	if err != nil {
		return nil, fmt.Errorf("%w: RLE literal at offset %d: %w", ErrTruncated, r.src.Pos(), err)
	}
	return b, nil
}

func (r *rleState) put(c color.NRGBA) error {
	if r.x >= r.grid.Width || r.y >= r.grid.Height {
		return fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfBounds, r.x, r.y, r.grid.Width, r.grid.Height)
	}
	r.grid.set(r.x, r.dstRow(r.y), c)
	r.x++
	return nil
}

func (r *rleState) putIndex(idx byte) error {
	c, err := r.palette.lookup(int(idx))
	if err != nil {
		return err
	}
	return r.put(c)
}

func bgr(b []byte) color.NRGBA {
	return color.NRGBA{R: b[2], G: b[1], B: b[0], A: 255}
}

// encodedRun emits count pixels from the data following the count byte:
// one index (RLE8), two alternating nibble indices (RLE4) or a BGR triple (RLE24).
func (r *rleState) encodedRun(count int) error {
	switch r.desc.Compression {
	case CompressionRLE24:
		b, err := r.take(3)
		if err != nil {
			return err
		}
		c := r.direct(bgr(b))
		for i := 0; i < count; i++ {
			if err := r.put(c); err != nil {
				return err
			}
		}
	case CompressionRLE4:
		v, err := r.next()
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			idx := v >> 4
			if i%2 == 1 {
				idx = v & 0x0F
			}
			if err := r.putIndex(idx); err != nil {
				return err
			}
		}
	default:
		v, err := r.next()
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := r.putIndex(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// absoluteRun copies count literal pixels. The literal bytes are padded to
// an even length.
func (r *rleState) absoluteRun(count int) error {
	var size int
	switch r.desc.Compression {
	case CompressionRLE24:
		size = count * 3
	case CompressionRLE4:
		size = (count + 1) / 2
	default:
		size = count
	}

	data, err := r.take(size)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		switch r.desc.Compression {
		case CompressionRLE24:
			err = r.put(r.direct(bgr(data[i*3:])))
		case CompressionRLE4:
			idx := data[i/2] >> 4
			if i%2 == 1 {
				idx = data[i/2] & 0x0F
			}
			err = r.putIndex(idx)
		default:
			err = r.putIndex(data[i])
		}
		if err != nil {
			return err
		}
	}

	if size%2 == 1 {
		if _, err := r.next(); err != nil {
			return err
		}
	}
	return nil
}
