package chat

import (
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// Audit actions, one per membership change.
const (
	AuditJoin   = "JOIN"
	AuditLeave  = "LEAVE"
	AuditRename = "RENAME"
)

// SessionRecord is one row of the session audit log. Message bodies are never
// stored, only membership changes.
type SessionRecord struct {
	ID          string    `gorm:"primaryKey;size:12" json:"id"`
	EventID     string    `gorm:"size:12" json:"event_id"`
	SessionID   string    `gorm:"index;not null" json:"session_id"`
	Action      string    `gorm:"index;not null" json:"action"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Metadata    string    `json:"metadata"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (r *SessionRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID != "" {
		return nil
	}
	r.ID, err = nanoid.New(eventIDLength)
	return
}
