package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Child is a child profile scoped to one family.
type Child struct {
	gorm.Model
	ChildID   string `gorm:"uniqueIndex;not null" json:"child_id"`
	FamilyID  string `gorm:"index;not null" json:"family_id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date,omitempty"`
	Diagnosis string `json:"diagnosis,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`
}

// FamilyMembership links a caregiver to a family.
type FamilyMembership struct {
	gorm.Model
	FamilyID    string `gorm:"index:idx_family_member;not null"`
	CaregiverID string `gorm:"index:idx_family_member;not null"`
	Relation    string // "parent", "guardian", ...
}

// TherapistAssignment links a therapist to a child they treat.
type TherapistAssignment struct {
	gorm.Model
	TherapistID string `gorm:"index:idx_therapist_child;not null"`
	ChildID     string `gorm:"index:idx_therapist_child;not null"`
}

// Observation is a caregiver- or assistant-recorded note about a child.
type Observation struct {
	gorm.Model
	ObservationID string `gorm:"uniqueIndex;not null" json:"observation_id"`
	ChildID       string `gorm:"index;not null" json:"child_id"`
	AuthorID      string `gorm:"not null" json:"author_id"`
	Category      string `json:"category,omitempty"` // "sleep", "behavior", "milestone", ...
	Note          string `gorm:"type:text" json:"note"`
}

// TherapySession is one scheduled or completed therapy session for a child.
type TherapySession struct {
	gorm.Model
	SessionID   string    `gorm:"uniqueIndex;not null" json:"session_id"`
	ChildID     string    `gorm:"index;not null" json:"child_id"`
	TherapistID string    `json:"therapist_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"` // "scheduled", "completed", "cancelled"
	Summary     string    `gorm:"type:text" json:"summary,omitempty"`
}

// FamilyStore exposes the per-child data the conversation tools read and write.
type FamilyStore interface {
	GetChild(ctx context.Context, childID string) (*Child, error)
	ListChildrenForCaregiver(ctx context.Context, caregiverID string) ([]Child, error)
	ListTherapySessions(ctx context.Context, childID string, limit int) ([]TherapySession, error)
	CreateObservation(ctx context.Context, childID, authorID, category, note string) (*Observation, error)
}

// Authorizer resolves whether a user may touch a child's data. Implementations
// must return ErrAccessDenied-style errors rather than booleans so callers can
// wrap the denial into a structured tool result.
type Authorizer interface {
	VerifyChildAccess(ctx context.Context, userID, childID string) error
}

// GORMFamilyStore implements FamilyStore and Authorizer on a shared GORM handle.
type GORMFamilyStore struct {
	db *gorm.DB
}

// NewGORMFamilyStore creates a family store from an existing GORM connection.
func NewGORMFamilyStore(db *gorm.DB) (*GORMFamilyStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if err := db.AutoMigrate(&Child{}, &FamilyMembership{}, &TherapistAssignment{}, &Observation{}, &TherapySession{}); err != nil {
		return nil, fmt.Errorf("failed to migrate family tables: %w", err)
	}

	return &GORMFamilyStore{db: db}, nil
}

// GetChild fetches one child profile.
func (s *GORMFamilyStore) GetChild(ctx context.Context, childID string) (*Child, error) {
	var child Child
	if err := s.db.WithContext(ctx).Where("child_id = ?", childID).First(&child).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch child %s: %w", childID, err)
	}
	return &child, nil
}

// ListChildrenForCaregiver returns the children in every family the
// caregiver belongs to.
func (s *GORMFamilyStore) ListChildrenForCaregiver(ctx context.Context, caregiverID string) ([]Child, error) {
	var memberships []FamilyMembership
	if err := s.db.WithContext(ctx).Where("caregiver_id = ?", caregiverID).Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch family memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	familyIDs := make([]string, len(memberships))
	for i, m := range memberships {
		familyIDs[i] = m.FamilyID
	}

	var children []Child
	if err := s.db.WithContext(ctx).Where("family_id IN ?", familyIDs).Order("name ASC").Find(&children).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}
	return children, nil
}

// ListTherapySessions returns a child's sessions, most recent first.
func (s *GORMFamilyStore) ListTherapySessions(ctx context.Context, childID string, limit int) ([]TherapySession, error) {
	var sessions []TherapySession
	query := s.db.WithContext(ctx).Where("child_id = ?", childID).Order("scheduled_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch therapy sessions: %w", err)
	}
	return sessions, nil
}

// CreateObservation appends a new observation row for a child.
func (s *GORMFamilyStore) CreateObservation(ctx context.Context, childID, authorID, category, note string) (*Observation, error) {
	obs := Observation{
		ObservationID: uuid.New().String(),
		ChildID:       childID,
		AuthorID:      authorID,
		Category:      category,
		Note:          note,
	}
	if err := s.db.WithContext(ctx).Create(&obs).Error; err != nil {
		return nil, fmt.Errorf("failed to create observation: %w", err)
	}
	return &obs, nil
}

// VerifyChildAccess grants access when the user is a caregiver in the
// child's family or a therapist assigned to the child.
func (s *GORMFamilyStore) VerifyChildAccess(ctx context.Context, userID, childID string) error {
	var child Child
	if err := s.db.WithContext(ctx).Where("child_id = ?", childID).First(&child).Error; err != nil {
		return fmt.Errorf("unknown child %s: %w", childID, err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&FamilyMembership{}).
		Where("family_id = ? AND caregiver_id = ?", child.FamilyID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check family membership: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&TherapistAssignment{}).
		Where("therapist_id = ? AND child_id = ?", userID, childID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check therapist assignment: %w", err)
	}
	if count > 0 {
		return nil
	}

	return fmt.Errorf("user %s is not authorized for child %s", userID, childID)
}
