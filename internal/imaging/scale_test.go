package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownscale(t *testing.T) {
	tests := []struct {
		name   string
		src    image.Rectangle
		factor int
		want   image.Rectangle
	}{
		{"halves both axes", image.Rect(0, 0, 8, 6), 2, image.Rect(0, 0, 4, 3)},
		{"narrow axis keeps one pixel", image.Rect(0, 0, 1, 5), 4, image.Rect(0, 0, 1, 1)},
		{"offset source bounds", image.Rect(10, 20, 18, 24), 4, image.Rect(0, 0, 2, 1)},
		{"empty axis stays empty", image.Rect(0, 0, 0, 3), 2, image.Rect(0, 0, 0, 1)},
		{"factor below one is identity", image.Rect(0, 0, 3, 2), 0, image.Rect(0, 0, 3, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := Downscale(image.NewNRGBA(tt.src), tt.factor)
			assert.Equal(t, tt.want, dst.Bounds())
		})
	}
}

func TestDownscale_SolidColor(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 5))
	for y := 0; y < 5; y++ {
		src.SetNRGBA(0, y, color.NRGBA{R: 90, A: 255})
	}

	dst := Downscale(src, 4)
	assert.InDelta(t, 90, int(dst.NRGBAAt(0, 0).R), 1)
	assert.Equal(t, uint8(255), dst.NRGBAAt(0, 0).A)
}
