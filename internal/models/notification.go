package models

import (
	"time"
)

// QueuedNotification is one pending event for a user. It doubles as the
// in-app notification row (ReadAt) and the email digest queue entry
// (Processed / ClaimToken). A row is included in at most one digest:
// the batcher stamps ClaimToken atomically before sending and only then
// flips Processed.
type QueuedNotification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	ProjectID  *uint      `gorm:"index" json:"project_id"`
	EventType  string     `gorm:"size:50;not null;index" json:"event_type"`
	Message    string     `gorm:"type:text" json:"message"`
	Processed  bool       `gorm:"not null;default:false;index" json:"processed"`
	ClaimToken *string    `gorm:"size:64;index" json:"-"`
	ClaimedAt  *time.Time `json:"-"`
	ReadAt     *time.Time `json:"read_at"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`

	User    User     `gorm:"foreignKey:UserID" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (QueuedNotification) TableName() string {
	return "queued_notifications"
}
