package kindred

import (
	"github.com/kindredcare/kindred/sessions"
	"github.com/kindredcare/kindred/stores"
	"github.com/kindredcare/kindred/tools"
)

// ChatConfig holds the wiring for a chat deployment: which model streams,
// where messages persist, which tools the model may call, and the loop
// bounds.
type ChatConfig struct {
	Model        sessions.Model
	Store        stores.MessageStore
	Tools        []tools.Tool
	SystemPrompt string
	MaxTurns     int
}

// NewChatConfig creates a configuration with default values and an on-disk
// SQLite store.
func NewChatConfig() *ChatConfig {
	defaultStore, err := stores.NewSQLiteStoreDefault()
	if err != nil {
		// Without a store nothing downstream can run.
		panic("Failed to create default SQLite store: " + err.Error())
	}

	return &ChatConfig{
		Store:    defaultStore,
		Tools:    []tools.Tool{},
		MaxTurns: sessions.DefaultMaxTurns,
	}
}

// WithModel sets the streaming model.
func (c *ChatConfig) WithModel(model sessions.Model) *ChatConfig {
	c.Model = model
	return c
}

// WithStore sets the message store.
func (c *ChatConfig) WithStore(store stores.MessageStore) *ChatConfig {
	c.Store = store
	return c
}

// WithTools sets the tools exposed to the model.
func (c *ChatConfig) WithTools(ts []tools.Tool) *ChatConfig {
	c.Tools = ts
	return c
}

// WithSystemPrompt sets the system prompt prepended to every model call.
func (c *ChatConfig) WithSystemPrompt(prompt string) *ChatConfig {
	c.SystemPrompt = prompt
	return c
}

// WithMaxTurns bounds the generate/execute cycle per request.
func (c *ChatConfig) WithMaxTurns(n int) *ChatConfig {
	c.MaxTurns = n
	return c
}

// WithSQLiteStore sets a SQLite store at the specified database path.
func (c *ChatConfig) WithSQLiteStore(dbPath string) *ChatConfig {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection
// parameters.
func (c *ChatConfig) WithPostgresStore(host, user, password, dbname string, port int) *ChatConfig {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

// Registry builds a tool registry from the configured tools.
func (c *ChatConfig) Registry() *tools.Registry {
	registry := tools.NewRegistry()
	registry.MustRegister(c.Tools...)
	return registry
}
