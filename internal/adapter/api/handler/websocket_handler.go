package handler

import (
	"net/http"
	"time"

	"github.com/V4T54L/floor-sync/internal/livefeed"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// FloorPlanSocket streams the events of one floor plan over a WebSocket.
// GET /ws/live-feed/{floorPlanID}
func (h *LiveFeedHandler) FloorPlanSocket(w http.ResponseWriter, r *http.Request) {
	h.serveSocket(w, r, false)
}

// CompanySocket streams every event of the caller's tenant. Administrators only.
// GET /ws/live-feed/company
func (h *LiveFeedHandler) CompanySocket(w http.ResponseWriter, r *http.Request) {
	h.serveSocket(w, r, true)
}

func (h *LiveFeedHandler) serveSocket(w http.ResponseWriter, r *http.Request, companyWide bool) {
	client, ok := h.register(w, r, companyWide)
	if !ok {
		return
	}
	defer h.registry.Remove(client)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	go h.readPump(conn, client)
	h.writePump(conn, client)
}

// readPump discards client messages and evicts the client once the peer goes away.
func (h *LiveFeedHandler) readPump(conn *websocket.Conn, client *livefeed.Client) {
	defer h.registry.Remove(client)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket closed unexpectedly", "client_id", client.ID, "error", err)
			}
			return
		}
	}
}

func (h *LiveFeedHandler) writePump(conn *websocket.Conn, client *livefeed.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-client.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
