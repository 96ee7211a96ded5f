package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// NewChatSession creates the loop driver for one conversation request.
func NewChatSession(conversationID, userID, childID string, model Model, registry *tools.Registry, store stores.MessageStore) *ChatSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[CHAT %s] ", conversationID), log.LstdFlags)

	return &ChatSession{
		Model:          model,
		Registry:       registry,
		Store:          store,
		Logger:         logger,
		ConversationID: conversationID,
		UserID:         userID,
		ChildID:        childID,
		MaxTurns:       DefaultMaxTurns,
		ModelTimeout:   DefaultModelTimeout,
	}
}
