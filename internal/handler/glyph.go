package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rcarmo/go-bmp/internal/codec/ttf"
	"github.com/rcarmo/go-bmp/internal/logging"
)

type glyphResponse struct {
	NumGlyphs  int        `json:"numGlyphs"`
	UnitsPerEm int        `json:"unitsPerEm"`
	Glyph      *ttf.Glyph `json:"glyph"`
}

// Glyph returns the outline of one glyph from the uploaded TrueType font.
func (h *Handler) Glyph(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("index: %w", err))
		return
	}

	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	font, err := ttf.Parse(data)
	if err != nil {
		logging.Debug("glyph: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	g, err := font.Glyph(index)
	switch {
	case err == nil:
	case errors.Is(err, ttf.ErrGlyphIndex):
		writeError(w, http.StatusNotFound, err)
		return
	default:
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, glyphResponse{
		NumGlyphs:  font.NumGlyphs(),
		UnitsPerEm: font.UnitsPerEm(),
		Glyph:      g,
	})
}
