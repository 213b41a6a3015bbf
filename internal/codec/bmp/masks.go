package bmp

import (
	"image/color"
	"math/bits"
)

// ChannelMask is one bitfield and the number of trailing zero bits below it.
type ChannelMask struct {
	Mask  uint32 `json:"mask"`
	Shift uint   `json:"shift"`
}

// ChannelMasks holds the red, green, blue and alpha bitfields of a
// 16/24/32 bpp pixel. A zero alpha mask means the image is opaque.
type ChannelMasks struct {
	Red   ChannelMask `json:"red"`
	Green ChannelMask `json:"green"`
	Blue  ChannelMask `json:"blue"`
	Alpha ChannelMask `json:"alpha"`
}

// ShiftFromMask counts the trailing zero bits of mask. A zero mask has shift 0.
func ShiftFromMask(mask uint32) uint {
	if mask == 0 {
		return 0
	}
	return uint(bits.TrailingZeros32(mask))
}

// NormalizeFromMask extracts the field selected by mask from v and scales it
// to 0..255 as (raw >> shift) * 255 / (mask >> shift).
func NormalizeFromMask(v, mask uint32, shift uint) uint8 {
	if mask == 0 {
		return 0
	}
	raw := uint64((v & mask) >> shift)
	maxValue := uint64(mask >> shift)
	return uint8(raw * 255 / maxValue) // #nosec G115 -- raw <= maxValue
}

func newChannelMask(mask uint32) ChannelMask {
	return ChannelMask{Mask: mask, Shift: ShiftFromMask(mask)}
}

// NewChannelMasks resolves the shifts for four masks once.
func NewChannelMasks(r, g, b, a uint32) ChannelMasks {
	return ChannelMasks{
		Red:   newChannelMask(r),
		Green: newChannelMask(g),
		Blue:  newChannelMask(b),
		Alpha: newChannelMask(a),
	}
}

// DefaultMasks returns the implicit bitfields for a depth: RGB-555 at 16 bpp,
// 8-8-8 at 24 and 32 bpp. Other depths have no masks.
func DefaultMasks(bpp int) ChannelMasks {
	switch bpp {
	case 16:
		return NewChannelMasks(0x7C00, 0x03E0, 0x001F, 0)
	case 24, 32:
		return NewChannelMasks(0x00FF0000, 0x0000FF00, 0x000000FF, 0)
	default:
		return ChannelMasks{}
	}
}

// Extract converts a packed pixel into a color.
func (m ChannelMasks) Extract(v uint32) color.NRGBA {
	a := uint8(255)
	if m.Alpha.Mask != 0 {
		a = NormalizeFromMask(v, m.Alpha.Mask, m.Alpha.Shift)
	}
	return color.NRGBA{
		R: NormalizeFromMask(v, m.Red.Mask, m.Red.Shift),
		G: NormalizeFromMask(v, m.Green.Mask, m.Green.Shift),
		B: NormalizeFromMask(v, m.Blue.Mask, m.Blue.Shift),
		A: a,
	}
}
