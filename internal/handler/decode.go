package handler

import (
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/rcarmo/go-bmp/internal/imaging"
	"github.com/rcarmo/go-bmp/internal/logging"
)

const maxScale = 64

// Decode converts the uploaded BMP to PNG. The optional scale query
// parameter divides both dimensions before encoding.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	scale := 1
	if s := r.URL.Query().Get("scale"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxScale {
			writeError(w, http.StatusBadRequest, fmt.Errorf("scale must be an integer in [1, %d], got %q", maxScale, s))
			return
		}
		scale = v
	}

	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	grid, err := h.decoder.Parse(data)
	if err != nil {
		logging.Debug("decode: %v", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var img image.Image = grid.Image()
	if scale > 1 {
		img = imaging.Downscale(img, scale)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Image-Width", strconv.Itoa(grid.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(grid.Height))
	if err := png.Encode(w, img); err != nil {
		logging.Warn("decode: png encode: %v", err)
	}
}
