// Package handler serves the decode API: header inspection, PNG conversion,
// glyph outlines and a websocket stream of decoded frames.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rcarmo/go-bmp/internal/codec/bmp"
	"github.com/rcarmo/go-bmp/internal/config"
	"github.com/rcarmo/go-bmp/internal/logging"
)

// Handler holds the decoder and limits shared by every endpoint.
type Handler struct {
	decoder        *bmp.Decoder
	maxUploadBytes int64
	allowedOrigins []string
	streams        chan struct{}
}

// New builds a Handler from the loaded configuration.
func New(cfg *config.Config) *Handler {
	return &Handler{
		decoder:        bmp.NewDecoder(cfg.Decoder.Options()),
		maxUploadBytes: cfg.Decoder.MaxUploadBytes,
		allowedOrigins: cfg.Security.AllowedOrigins,
		streams:        make(chan struct{}, cfg.Security.MaxConnections),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/info", h.Info)
	mux.HandleFunc("/api/decode", h.Decode)
	mux.HandleFunc("/api/glyph", h.Glyph)
	mux.HandleFunc("/ws", h.Stream)
}

type errorResponse struct {
	Phase string `json:"phase,omitempty"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("handler: encode response: %v", err)
	}
}

// writeError maps decode failures to 422 with their phase and everything
// else to the given status.
func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}

	var de *bmp.DecodeError
	if errors.As(err, &de) {
		status = http.StatusUnprocessableEntity
		resp.Phase = de.Phase.String()
		resp.Error = de.Err.Error()
	}

	writeJSON(w, status, resp)
}

var errMethodNotAllowed = errors.New("method not allowed")

// readUpload reads a POST body no larger than maxUploadBytes. It writes the
// error response itself and returns ok=false on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return nil, false
	}

	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return nil, false
	}
	return data, true
}
