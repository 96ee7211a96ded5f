package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/sessions"
)

// GinSSEWriter adapts a gin context to the loop's EventWriter: one SSE frame
// per event, named with the event type.
type GinSSEWriter struct {
	Context *gin.Context
}

func (w *GinSSEWriter) WriteEvent(name string, payload any) error {
	w.Context.SSEvent(name, payload)
	return nil
}

func (w *GinSSEWriter) Flush() {
	w.Context.Writer.Flush()
}

// ChatStream runs one send-message request and streams the loop's events
// over SSE. The request context doubles as the disconnect signal: when the
// client goes away the emitter latches shut and no new tool calls start,
// but an in-flight call still completes and persists.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	conversationID := c.Param("conversationID")
	userID := callerID(c)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	session := h.session(conversationID, userID, req.ChildID)
	emitter := sessions.NewEmitter(&GinSSEWriter{Context: c}, session.Logger)

	ctx := c.Request.Context()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			emitter.Disconnect()
		case <-finished:
		}
	}()

	if _, err := session.Run(ctx, req.Message, emitter); err != nil {
		session.Logger.Printf("Stream ended with error: %v", err)
	}
}

// Chat runs the same loop but collects the outcome into a single JSON
// response for clients that do not consume streams.
func (h *ChatHandler) Chat(c *gin.Context) {
	conversationID := c.Param("conversationID")
	userID := callerID(c)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	session := h.session(conversationID, userID, req.ChildID)
	emitter := sessions.NewEmitter(discardWriter{}, session.Logger)

	result, err := session.Run(c.Request.Context(), req.Message, emitter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":      result.Text,
		"stop_reason":   result.StopReason,
		"turns":         result.Turns,
		"input_tokens":  result.Usage.InputTokens,
		"output_tokens": result.Usage.OutputTokens,
	})
}

// discardWriter drops events; the collected Chat endpoint only needs the
// LoopResult.
type discardWriter struct{}

func (discardWriter) WriteEvent(name string, payload any) error { return nil }
func (discardWriter) Flush()                                    {}
