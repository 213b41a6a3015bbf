package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/go-bmp/internal/codec/bmp"
	"github.com/rcarmo/go-bmp/internal/logging"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// frameMessage precedes every binary RGBA frame; errorMessage replaces it
// when the upload does not decode.
type frameMessage struct {
	Type       string              `json:"type"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Descriptor *bmp.FileDescriptor `json:"descriptor"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Phase string `json:"phase,omitempty"`
	Error string `json:"error"`
}

// Stream upgrades to a websocket and decodes every binary message as a BMP.
// Each success is answered with a JSON text message followed by one binary
// message of packed RGBA rows; each failure with a JSON error message.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	select {
	case h.streams <- struct{}{}:
		defer func() { <-h.streams }()
	default:
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, h.allowedOrigins, r.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("stream: upgrade websocket: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logging.Debug("stream: close websocket: %v", err)
		}
	}()

	conn.SetReadLimit(h.maxUploadBytes)
	logging.Info("stream: %s connected", r.RemoteAddr)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!strings.HasSuffix(err.Error(), "use of closed network connection") {
				logging.Warn("stream: read message: %v", err)
			}
			return
		}

		if err := h.streamFrame(conn, kind, data); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				logging.Warn("stream: write message: %v", err)
			}
			return
		}
	}
}

func (h *Handler) streamFrame(conn *websocket.Conn, kind int, data []byte) error {
	if kind != websocket.BinaryMessage {
		return conn.WriteJSON(errorMessage{Type: "error", Error: "expected a binary message"})
	}

	desc, grid, err := h.decoder.ParseWithHeader(data)
	if err == nil {
		msg := frameMessage{Type: "frame", Width: grid.Width, Height: grid.Height, Descriptor: desc}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, grid.RGBA())
	}

	msg := errorMessage{Type: "error", Error: err.Error()}
	var de *bmp.DecodeError
	if errors.As(err, &de) {
		msg.Phase = de.Phase.String()
		msg.Error = de.Err.Error()
	}
	return conn.WriteJSON(msg)
}

// isAllowedOrigin accepts same-host and loopback origins, and any origin
// on the allow-list with or without its scheme. Hosts are compared exactly
// after parsing, so "localhost.example.net" is not a loopback origin.
func isAllowedOrigin(origin string, allowed []string, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	if host != "" && strings.EqualFold(u.Host, host) {
		return true
	}
	if isLoopbackHost(u.Hostname()) {
		return true
	}

	for _, entry := range allowed {
		candidate := strings.TrimSuffix(strings.TrimSpace(entry), "/")
		if candidate == "" {
			continue
		}
		if !strings.Contains(candidate, "://") {
			if strings.EqualFold(candidate, u.Host) {
				return true
			}
			continue
		}
		if c, err := url.Parse(candidate); err == nil &&
			strings.EqualFold(c.Scheme, u.Scheme) && strings.EqualFold(c.Host, u.Host) {
			return true
		}
	}

	return false
}

func isLoopbackHost(hostname string) bool {
	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
