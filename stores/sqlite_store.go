package stores

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements MessageStore for SQLite databases
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		path: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	config := NewStoreConfig("sqlite", dbPath)
	return NewSQLiteStore(config)
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
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
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// SaveMessage appends a row to the conversation's log. The conversation
// record is created on first write if the route layer has not done so.
func (s *SQLiteStore) SaveMessage(conversationID string, msg NewMessage) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return saveMessage(s.db, conversationID, msg)
}

// FetchHistory retrieves messages for a conversation in sequence order.
// limit: maximum number of messages to retrieve (0 = return all messages)
func (s *SQLiteStore) FetchHistory(conversationID string, limit int) ([]Message, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return fetchHistory(s.db, conversationID, limit)
}

// CreateConversation creates a new conversation record
func (s *SQLiteStore) CreateConversation(convoID, caregiverID, childID string) error {
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
func (s *SQLiteStore) GetConversation(convoID string) (*Conversation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return getConversation(s.db, convoID)
}

// TouchConversation refreshes the conversation's updated_at and, when title
// is non-empty and no title is set yet, records the derived title.
func (s *SQLiteStore) TouchConversation(convoID, title string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return touchConversation(s.db, convoID, title)
}

// ListConversationsForCaregiver returns all conversations with details for
// a specific caregiver, most recently updated first.
func (s *SQLiteStore) ListConversationsForCaregiver(caregiverID string) ([]ConversationInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return listConversationsForCaregiver(s.db, caregiverID)
}

// DeleteConversationsBefore removes conversations (and their messages) whose
// last update is older than cutoff. Returns the number of conversations removed.
func (s *SQLiteStore) DeleteConversationsBefore(cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}
	return deleteConversationsBefore(s.db, cutoff)
}

// DB exposes the underlying GORM handle so sibling stores (family data,
// authorization) can share one connection.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// saveMessage is the shared GORM append path used by both stores.
func saveMessage(db *gorm.DB, conversationID string, msg NewMessage) error {
	// Ensure conversation record exists (create if first message).
	// Use Count() to check existence without triggering "record not found" error logs
	var count int64
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		log.Printf("Warning: Error checking for conversation %s: %v", conversationID, err)
	} else if count == 0 {
		log.Printf("Warning: Conversation %s missing at first write, creating without caregiver", conversationID)
		if err := db.Create(&Conversation{ConversationID: conversationID}).Error; err != nil {
			log.Printf("Warning: Failed to create conversation record for %s: %v", conversationID, err)
		}
	}

	// Reuse count variable to get message sequence number
	if err := db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count existing messages: %w", err)
	}

	seq := int(count) + 1

	row := Message{
		ConversationID: conversationID,
		Sequence:       seq,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolName:       msg.ToolName,
		ToolCallID:     msg.ToolCallID,
		InputTokens:    msg.InputTokens,
		OutputTokens:   msg.OutputTokens,
	}

	tx := db.Begin()
	if err := tx.Create(&row).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create message record: %w", err)
	}

	if err := tx.Model(&Conversation{}).Where("conversation_id = ?", conversationID).Update("message_count", seq).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update conversation message count: %w", err)
	}

	return tx.Commit().Error
}

func fetchHistory(db *gorm.DB, conversationID string, limit int) ([]Message, error) {
	var msgs []Message
	query := db.Where("conversation_id = ?", conversationID).Order("sequence ASC")

	if limit > 0 {
		// Get total count first
		var count int64
		if err := db.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}

		// If more than limit, offset to get only last N messages
		if count > int64(limit) {
			offset := int(count) - limit
			query = query.Offset(offset)
		}
	}

	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return msgs, nil
}

func getConversation(db *gorm.DB, convoID string) (*Conversation, error) {
	var conv Conversation
	if err := db.Where("conversation_id = ?", convoID).First(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversation %s: %w", convoID, err)
	}
	return &conv, nil
}

func touchConversation(db *gorm.DB, convoID, title string) error {
	updates := map[string]any{"updated_at": time.Now()}
	tx := db.Model(&Conversation{}).Where("conversation_id = ?", convoID)
	if title != "" {
		tx = tx.Where("title = ? OR title IS NULL", "")
		updates["title"] = title
	}
	if err := tx.Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to touch conversation %s: %w", convoID, err)
	}
	if title != "" {
		// The title-guarded update is a no-op when a title already exists;
		// still refresh updated_at in that case.
		return db.Model(&Conversation{}).Where("conversation_id = ?", convoID).
			Update("updated_at", time.Now()).Error
	}
	return nil
}

func listConversationsForCaregiver(db *gorm.DB, caregiverID string) ([]ConversationInfo, error) {
	var convs []Conversation
	if err := db.Where("caregiver_id = ?", caregiverID).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		result[i] = ConversationInfo{
			ConversationID: c.ConversationID,
			CaregiverID:    c.CaregiverID,
			ChildID:        c.ChildID,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
			CreatedAt:      c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:      c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return result, nil
}

func deleteConversationsBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	var convs []Conversation
	if err := db.Where("updated_at < ?", cutoff).Find(&convs).Error; err != nil {
		return 0, fmt.Errorf("failed to list expired conversations: %w", err)
	}
	if len(convs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ConversationID
	}

	tx := db.Begin()
	if err := tx.Where("conversation_id IN ?", ids).Delete(&Message{}).Error; err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}
	if err := tx.Where("conversation_id IN ?", ids).Delete(&Conversation{}).Error; err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to delete expired conversations: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}
