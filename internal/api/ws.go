package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StreamNotifications godoc
// @Summary      Stream status updates for the caller's notifications
// @Tags         notifications
// @Security     BearerAuth
// @Router       /ws/notifications [get]
func (h *Handler) StreamNotifications(c *gin.Context) {
	tokenID := currentToken(c).ID
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	if !h.hub.AddConnection(tokenID, conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"))
		_ = conn.Close()
		return
	}
	defer func() {
		h.hub.RemoveConnection(tokenID, conn)
		_ = conn.Close()
	}()

	// Updates only flow server to client; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
