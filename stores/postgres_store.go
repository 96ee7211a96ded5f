package stores

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements MessageStore for PostgreSQL databases
type PostgresStore struct {
	db  *gorm.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for Postgres store: %s", config.Type)
	}

	store := &PostgresStore{
		dsn: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return store, nil
}

// NewPostgresStoreSimple creates a new PostgreSQL store with just a DSN
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	config := NewStoreConfig("postgres", dsn)
	return NewPostgresStore(config)
}

// Connect establishes a connection to the PostgreSQL database
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// SaveMessage appends a row to the conversation's log.
func (s *PostgresStore) SaveMessage(conversationID string, msg NewMessage) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return saveMessage(s.db, conversationID, msg)
}

// FetchHistory retrieves messages for a conversation in sequence order.
func (s *PostgresStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return fetchHistory(s.db, conversationID, limit)
}

// CreateConversation creates a new conversation record
func (s *PostgresStore) CreateConversation(convoID, caregiverID, childID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	conv := Conversation{
		ConversationID: convoID,
		CaregiverID:    caregiverID,
		ChildID:        childID,
		MessageCount:   0,
	}

	return s.db.Create(&conv).Error
}

// GetConversation returns one conversation record by its ID.
func (s *PostgresStore) GetConversation(convoID string) (*Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return getConversation(s.db, convoID)
}

// TouchConversation refreshes updated_at and sets the title on first exchange.
func (s *PostgresStore) TouchConversation(convoID, title string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return touchConversation(s.db, convoID, title)
}

// ListConversationsForCaregiver returns a caregiver's conversations.
func (s *PostgresStore) ListConversationsForCaregiver(caregiverID string) ([]ConversationInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return listConversationsForCaregiver(s.db, caregiverID)
}

// DeleteConversationsBefore removes conversations past the retention cutoff.
func (s *PostgresStore) DeleteConversationsBefore(cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}
	return deleteConversationsBefore(s.db, cutoff)
}

// DB exposes the underlying GORM handle so sibling stores (family data,
// authorization) can share one connection.
func (s *PostgresStore) DB() *gorm.DB {
	return s.db
}
