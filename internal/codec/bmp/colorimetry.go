package bmp

import (
	"image/color"
	"math"
)

const (
	fixed2Dot30  = 1 << 30
	fixed16Dot16 = 1 << 16
)

// XYZ is a CIE XYZ triple.
type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Colorimetry is the calibration block of a v4/v5 header: the XYZ
// endpoints of the three primaries and a gamma exponent per channel.
type Colorimetry struct {
	Red        XYZ     `json:"red"`
	Green      XYZ     `json:"green"`
	Blue       XYZ     `json:"blue"`
	GammaRed   float64 `json:"gammaRed"`
	GammaGreen float64 `json:"gammaGreen"`
	GammaBlue  float64 `json:"gammaBlue"`
}

// XYZ to linear sRGB, IEC 61966-2-1.
var xyzToLinearSRGB = [3][3]float64{
	{3.2406, -1.5372, -0.4986},
	{-0.9689, 1.8758, 0.0415},
	{0.0557, -0.2040, 1.0570},
}

func decodeColorimetry(endpoints [9]int32, gr, gg, gb uint32) *Colorimetry {
	ep := func(i int) XYZ {
		return XYZ{
			X: float64(endpoints[i]) / fixed2Dot30,
			Y: float64(endpoints[i+1]) / fixed2Dot30,
			Z: float64(endpoints[i+2]) / fixed2Dot30,
		}
	}
	return &Colorimetry{
		Red:        ep(0),
		Green:      ep(3),
		Blue:       ep(6),
		GammaRed:   float64(gr) / fixed16Dot16,
		GammaGreen: float64(gg) / fixed16Dot16,
		GammaBlue:  float64(gb) / fixed16Dot16,
	}
}

// degenerate reports an all-zero endpoint block; applying it would turn
// every pixel black.
func (c *Colorimetry) degenerate() bool {
	var zero XYZ
	return c.Red == zero && c.Green == zero && c.Blue == zero
}

func (c *Colorimetry) neutral() bool {
	return c.Red == XYZ{X: 1} && c.Green == XYZ{Y: 1} && c.Blue == XYZ{Z: 1} &&
		gammaOrLinear(c.GammaRed) == 1 && gammaOrLinear(c.GammaGreen) == 1 && gammaOrLinear(c.GammaBlue) == 1
}

// A zero gamma field means the channel is stored linearly.
func gammaOrLinear(g float64) float64 {
	if g == 0 {
		return 1
	}
	return g
}

// ToSRGB transforms a decoded color through the calibration into sRGB.
// Alpha is carried through unchanged.
func (c *Colorimetry) ToSRGB(in color.NRGBA) color.NRGBA {
	if c == nil || c.neutral() {
		return in
	}

	r := math.Pow(float64(in.R)/255, gammaOrLinear(c.GammaRed))
	g := math.Pow(float64(in.G)/255, gammaOrLinear(c.GammaGreen))
	b := math.Pow(float64(in.B)/255, gammaOrLinear(c.GammaBlue))

	xyz := [3]float64{
		r*c.Red.X + g*c.Green.X + b*c.Blue.X,
		r*c.Red.Y + g*c.Green.Y + b*c.Blue.Y,
		r*c.Red.Z + g*c.Green.Z + b*c.Blue.Z,
	}

	var out [3]uint8
	for i, row := range xyzToLinearSRGB {
		linear := row[0]*xyz[0] + row[1]*xyz[1] + row[2]*xyz[2]
		out[i] = denormalize(compand(linear))
	}

	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: in.A}
}

// ToSRGB applies c to in; a nil c leaves in untouched.
func ToSRGB(in color.NRGBA, c *Colorimetry) color.NRGBA {
	return c.ToSRGB(in)
}

func compand(linear float64) float64 {
	if linear <= 0.0031308 {
		return 12.92 * linear
	}
	return 1.055*math.Pow(linear, 1/2.4) - 0.055
}

func denormalize(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v * 255)
	}
}
