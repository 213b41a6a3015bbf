package bmp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic           = errors.New("bmp: unrecognized file magic")
	ErrUnsupportedHeader      = errors.New("bmp: unsupported DIB header size")
	ErrUnsupportedCompression = errors.New("bmp: unsupported compression method")
	ErrInvalidBitDepth        = errors.New("bmp: invalid bits per pixel")
	ErrCompressionDepth       = errors.New("bmp: compression method does not match bit depth")
	ErrNegativeWidth          = errors.New("bmp: negative width")
	ErrTooLarge               = errors.New("bmp: image dimensions exceed limits")
	ErrTruncated              = errors.New("bmp: truncated data")
	ErrBadPixelOffset         = errors.New("bmp: pixel data offset out of range")
	ErrPaletteIndex           = errors.New("bmp: palette index out of range")
	ErrOutOfBounds            = errors.New("bmp: pixel cursor out of bounds")
)

// Phase identifies the decode step that failed.
type Phase int

const (
	PhaseFileHeader Phase = iota
	PhaseDIBHeader
	PhaseBitfields
	PhasePalette
	PhasePixels
)

func (p Phase) String() string {
	switch p {
	case PhaseFileHeader:
		return "file header"
	case PhaseDIBHeader:
		return "dib header"
	case PhaseBitfields:
		return "bitfields"
	case PhasePalette:
		return "palette"
	case PhasePixels:
		return "pixels"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON error bodies.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// DecodeError is returned for every failed decode. Err is one of the
// package sentinels, possibly wrapped with detail.
type DecodeError struct {
	Phase Phase
	Err   error
}

func (e *DecodeError) Error() string {
	return e.Phase.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func phaseError(p Phase, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Phase: p, Err: err}
}
