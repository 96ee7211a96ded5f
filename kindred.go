package kindred

import (
	"github.com/kindredcare/kindred/sessions"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// Re-export the session types callers wire together, so embedding
// applications only import the root package.
type ChatSession = sessions.ChatSession
type Emitter = sessions.Emitter
type EventWriter = sessions.EventWriter
type WebSocketWriter = sessions.WebSocketWriter
type Model = sessions.Model
type LoopError = sessions.LoopError
type LoopResult = sessions.LoopResult

type Tool = tools.Tool
type ToolContext = tools.ToolContext
type Registry = tools.Registry

type MessageStore = stores.MessageStore

// Re-export constructor functions.
func NewChatSession(conversationID, userID, childID string, model Model, registry *Registry, store MessageStore) *ChatSession {
	return sessions.NewChatSession(conversationID, userID, childID, model, registry, store)
}

func NewEmitter(writer EventWriter, session *ChatSession) *Emitter {
	return sessions.NewEmitter(writer, session.Logger)
}

func NewRegistry() *Registry {
	return tools.NewRegistry()
}
