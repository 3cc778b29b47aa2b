package models

import (
	"time"
)

// PartnerInvitation invites an email address to join a project as a partner.
// Token is a uuid sent in the invitation email; invitations expire after 7 days.
type PartnerInvitation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ProjectID uint       `gorm:"not null;index" json:"project_id"`
	InviterID uint       `gorm:"not null;index" json:"inviter_id"`
	Email     string     `gorm:"size:255;not null;index" json:"email"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Status    string     `gorm:"size:20;not null;index;default:'PENDING'" json:"status"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	DecidedAt *time.Time `json:"decided_at"`
	CreatedAt time.Time  `json:"created_at"`

	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Inviter User    `gorm:"foreignKey:InviterID" json:"-"`
}

func (PartnerInvitation) TableName() string {
	return "partner_invitations"
}

func (i *PartnerInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
