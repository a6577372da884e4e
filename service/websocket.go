package service

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket timing constants
const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// The service sits behind the deployment's own ingress controls
		return true
	},
}

// handleEvents upgrades the connection and streams the session's
// notifications as JSON frames until the client disconnects or the session
// closes.
func (es *EditorService) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := es.session(r.PathValue("id"))
	if !ok {
		es.writeJSONError(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		es.logger.Error("WebSocket upgrade failed", "error", err, "session_id", sess.ID)
		return
	}

	ch := sess.hub.subscribe()
	defer sess.hub.unsubscribe(ch)
	defer func() { _ = conn.Close() }()

	es.logger.Debug("Event stream opened", "session_id", sess.ID)

	// Drain client frames so close messages and pongs are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n, open := <-ch:
			if !open {
				// Session closed
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				es.logger.Debug("Event stream write failed", "error", err, "session_id", sess.ID)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
