package wsstream

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hostcp/internal/infrastructure/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to WebSocket connections.
type Handler struct {
	hub  *Hub
	auth Authenticator
	log  *logger.Logger
}

func NewHandler(hub *Hub, auth Authenticator, log *logger.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authenticate(r); err != nil {
		h.log.Warn("websocket authentication failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err.Error(), "remote_addr", r.RemoteAddr)
		return
	}

	client := NewClient(uuid.NewString(), h.hub, conn)
	h.log.Info("websocket client connected", "client_id", client.id, "remote_addr", r.RemoteAddr)

	h.hub.register <- client
	go client.writePump()
	go client.readPump()
}
