package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/farmcab/farmcab-core/internal/liveview"
)

// WebSocket timing constants.
const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 50 * time.Second
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Panel UIs connect from the LAN; origin filtering happens upstream
		return true
	},
}

// liveMessage is the envelope for WebSocket live stream frames.
type liveMessage struct {
	Type      string             `json:"type"`
	Timestamp string             `json:"timestamp"`
	Snapshot  *liveview.Snapshot `json:"snapshot,omitempty"`
	Update    *liveview.Update   `json:"update,omitempty"`
}

// handleLiveSnapshot selects an area and returns its live projection.
func (s *Server) handleLiveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "live view not configured")
		return
	}

	areaID := chi.URLParam(r, "id")

	if err := s.live.SetArea(r.Context(), areaID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.live.Snapshot())
}

// handleLiveSocket upgrades to a WebSocket and streams live view updates.
//
// Each connection gets its own watcher on the projection; slow readers miss
// updates rather than backing up the realtime path. The stream opens with a
// full snapshot so the client starts from a consistent picture.
func (s *Server) handleLiveSocket(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "live view not configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	updates, cancel := s.live.Watch()

	go s.liveWritePump(conn, updates)
	go s.liveReadPump(conn, cancel)
}

// liveWritePump streams the opening snapshot and then every update.
// Exits when the watcher channel closes or a write fails.
func (s *Server) liveWritePump(conn *websocket.Conn, updates <-chan liveview.Update) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	snap := s.live.Snapshot()
	if err := writeLiveMessage(conn, liveMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				//nolint:errcheck // Best-effort close message
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := writeLiveMessage(conn, liveMessage{Type: "update", Update: &update}); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// liveReadPump drains client frames to process pongs and detect disconnects.
// Cancelling the watcher closes the update channel, which ends the write pump.
func (s *Server) liveReadPump(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	conn.SetReadLimit(maxRequestBodySize)
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			} else {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
	}
}

// writeLiveMessage marshals and sends one frame with a write deadline.
func writeLiveMessage(conn *websocket.Conn, msg liveMessage) error {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	//nolint:errcheck // Best-effort deadline; write error caught below
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
