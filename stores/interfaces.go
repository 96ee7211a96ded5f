package stores

import (
	"time"

	"gorm.io/gorm"
)

// Message is one durable row in a conversation's append-only log.
// Rows are immutable once written and strictly ordered by sequence
// within a conversation.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "assistant", "tool_call", "tool_result"
	// Content is plain text for user/assistant rows and a JSON-encoded
	// payload for tool_call ({id, input}) and tool_result rows.
	Content      string `gorm:"type:text"`
	ToolName     string `json:"tool_name,omitempty"`
	ToolCallID   string `gorm:"index" json:"tool_call_id,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Message roles as persisted.
const (
	RoleUser       = "user"
	RoleAssistant  = "assistant"
	RoleToolCall   = "tool_call"
	RoleToolResult = "tool_result"
)

// ToolCallPayload is the JSON shape stored in a tool_call row's Content.
type ToolCallPayload struct {
	ID    string         `json:"id"`
	Input map[string]any `json:"input"`
}

// ToolResultPayload is the JSON shape stored in a tool_result row's Content.
type ToolResultPayload struct {
	Result  any  `json:"result"`
	IsError bool `json:"is_error,omitempty"`
}

// Conversation holds metadata for a chat conversation. Append-only except
// for title and timestamp refresh.
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	CaregiverID    string    `gorm:"index;not null"`
	ChildID        string    `gorm:"index"` // optional child scope
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing.
type ConversationInfo struct {
	ConversationID string
	CaregiverID    string
	ChildID        string
	Title          string
	MessageCount   int
	CreatedAt      string
	UpdatedAt      string
}

// NewMessage carries the fields of a row to append. The store assigns
// sequence and timestamps.
type NewMessage struct {
	Role         string
	Content      string
	ToolName     string
	ToolCallID   string
	InputTokens  int
	OutputTokens int
}

// MessageStore interface for abstracting database operations
type MessageStore interface {
	// Message operations
	SaveMessage(conversationID string, msg NewMessage) error
	FetchHistory(conversationID string, limit int) ([]Message, error)

	// Conversation operations
	CreateConversation(convoID, caregiverID, childID string) error
	GetConversation(convoID string) (*Conversation, error)
	TouchConversation(convoID, title string) error
	ListConversationsForCaregiver(caregiverID string) ([]ConversationInfo, error)
	DeleteConversationsBefore(cutoff time.Time) (int64, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
