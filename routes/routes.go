package routes

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/sessions"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// ChatHandler holds the collaborators every chat route needs. One handler
// serves all conversations; per-request state lives in the ChatSession it
// creates.
type ChatHandler struct {
	Model        sessions.Model
	Registry     *tools.Registry
	Store        stores.MessageStore
	SystemPrompt string
	MaxTurns     int
	Logger       *log.Logger
}

func NewChatHandler(model sessions.Model, registry *tools.Registry, store stores.MessageStore) *ChatHandler {
	return &ChatHandler{
		Model:    model,
		Registry: registry,
		Store:    store,
		Logger:   log.New(os.Stdout, "[HTTP] ", log.LstdFlags),
	}
}

// RegisterRoutes mounts the chat API under /api/v1 plus a root health check.
func (h *ChatHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	api.POST("/conversations", h.CreateConversation)
	api.GET("/conversations", h.ListConversations)
	api.POST("/chat/:conversationID", h.Chat)
	api.POST("/chat/stream/:conversationID", h.ChatStream)
	api.GET("/chat/history/:conversationID", h.ChatHistory)
	api.GET("/ws/chat/:conversationID", h.ChatWebSocket)
}

// callerID resolves the authenticated caregiver or therapist for a request.
// Identity arrives on the X-User-ID header (set by the gateway in front of
// this service).
func callerID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return c.Query("user_id")
}

func (h *ChatHandler) session(conversationID, userID, childID string) *sessions.ChatSession {
	s := sessions.NewChatSession(conversationID, userID, childID, h.Model, h.Registry, h.Store)
	s.SystemPrompt = h.SystemPrompt
	if h.MaxTurns > 0 {
		s.MaxTurns = h.MaxTurns
	}
	return s
}

// CreateConversation mints a conversation ID and registers the row up front,
// so listings show the conversation before its first message.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	var req models.ChatRequest
	// Body is optional here; only child_id matters if present.
	_ = c.ShouldBindJSON(&req)

	conversationID := uuid.New().String()
	if err := h.Store.CreateConversation(conversationID, userID, req.ChildID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation_id": conversationID})
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return
	}

	infos, err := h.Store.ListConversationsForCaregiver(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	list := make([]models.ConversationResponse, 0, len(infos))
	for _, info := range infos {
		list = append(list, models.ConversationResponse{
			ConversationID: info.ConversationID,
			Title:          info.Title,
			ChildID:        info.ChildID,
			MessageCount:   info.MessageCount,
			CreatedAt:      info.CreatedAt,
			UpdatedAt:      info.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// ChatHistory returns a conversation's rows in insertion order, shaped for
// clients.
func (h *ChatHandler) ChatHistory(c *gin.Context) {
	conversationID := c.Param("conversationID")

	msgs, err := h.Store.FetchHistory(conversationID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history := make([]models.ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, models.ChatMessageResponse{
			ID:             m.ID,
			CreatedAt:      m.CreatedAt,
			ConversationID: m.ConversationID,
			Role:           m.Role,
			Content:        m.Content,
			ToolName:       m.ToolName,
			ToolCallID:     m.ToolCallID,
			InputTokens:    m.InputTokens,
			OutputTokens:   m.OutputTokens,
		})
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// Health reports liveness plus store reachability.
func (h *ChatHandler) Health(c *gin.Context) {
	if err := h.Store.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
