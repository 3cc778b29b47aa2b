package models

import (
	"time"

	"sitework/internal/domain"
)

// NotificationPreference controls whether and how often digest emails are
// sent, plus per-event-type toggles. Toggles are applied where the event is
// enqueued; a disabled type still produces an in-app row but never an email.
type NotificationPreference struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	EmailDigestFrequency string    `gorm:"size:20;not null;default:'daily'" json:"email_digest_frequency"` // immediate | daily | weekly | never
	EmailOnCost          bool      `gorm:"not null;default:true" json:"email_on_cost"`
	EmailOnDocument      bool      `gorm:"not null;default:true" json:"email_on_document"`
	EmailOnInvitation    bool      `gorm:"not null;default:true" json:"email_on_invitation"`
	EmailOnStatus        bool      `gorm:"not null;default:true" json:"email_on_status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreference is the preference applied to users who never saved one.
func DefaultPreference(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:               userID,
		EmailDigestFrequency: domain.FrequencyDaily,
		EmailOnCost:          true,
		EmailOnDocument:      true,
		EmailOnInvitation:    true,
		EmailOnStatus:        true,
	}
}

// AllowsEvent returns whether the per-type toggle permits emailing this event.
func (p *NotificationPreference) AllowsEvent(eventType string) bool {
	switch eventType {
	case domain.EventCostAdded:
		return p.EmailOnCost
	case domain.EventDocumentUploaded:
		return p.EmailOnDocument
	case domain.EventInvitation, domain.EventPartnerJoined:
		return p.EmailOnInvitation
	case domain.EventStatusChanged:
		return p.EmailOnStatus
	default:
		return true
	}
}
