package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/swiftship/delivery-tracking/internal/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins in local deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades viewer connections and hands them to the hub.
type WSHandler struct {
	hub *broadcast.Hub
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(hub *broadcast.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve handles GET /ws.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	broadcast.NewClient(h.hub, conn)
}
