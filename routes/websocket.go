package routes

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/sessions"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatWebSocket upgrades the connection and serves send-message requests as
// JSON frames, streaming each one's events back over the same socket. One
// loop runs at a time per connection; frames are read sequentially.
func (h *ChatHandler) ChatWebSocket(c *gin.Context) {
	conversationID := c.Param("conversationID")
	userID := callerID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", conversationID), log.LstdFlags)

	for {
		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Printf("WebSocket error: %v", err)
			}
			break
		}
		if req.Message == "" {
			_ = conn.WriteJSON(gin.H{"type": models.EventError, "data": gin.H{"message": "message is required"}})
			continue
		}

		session := h.session(conversationID, userID, req.ChildID)
		session.Logger = logger

		writer := &sessions.WebSocketWriter{
			Conn:      conn,
			Logger:    logger,
			StartTime: time.Now(),
		}
		emitter := sessions.NewEmitter(writer, logger)

		if _, err := session.Run(c.Request.Context(), req.Message, emitter); err != nil {
			logger.Printf("Interaction failed: %v", err)
		}
	}

	logger.Printf("WebSocket session ended")
}
