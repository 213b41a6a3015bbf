package handler

import (
	"net/http"

	"github.com/rcarmo/go-bmp/internal/logging"
)

// Info returns the parsed headers of the uploaded BMP as JSON.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	desc, err := h.decoder.ParseHeader(data)
	if err != nil {
		logging.Debug("info: %v", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, desc)
}
