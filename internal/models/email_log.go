package models

import (
	"time"
)

// EmailLogEntry records one outbound email attempt. ProviderMessageID
// correlates asynchronous delivery-status webhooks from the email provider.
type EmailLogEntry struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	Subject           string     `gorm:"size:255" json:"subject"`
	ProviderMessageID string     `gorm:"size:128;index" json:"provider_message_id"`
	Status            string     `gorm:"size:20;not null;index" json:"status"` // sent | delivered | bounced | failed
	LastError         string     `gorm:"size:512" json:"last_error"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (EmailLogEntry) TableName() string {
	return "email_log_entries"
}
