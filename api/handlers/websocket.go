package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/collab-canvas/backend/internal/ws"
)

// WebSocketHandler upgrades client connections to the canvas protocol.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Connect handles GET /ws - upgrades the connection and hands it to the
// coordinator. The client joins a room with its first join_room event.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		log.Printf("[Server] websocket upgrade failed: %v", err)
	}
}

// RegisterRoutes registers the WebSocket route on a Gin router.
func (h *WebSocketHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws", h.Connect)
}
