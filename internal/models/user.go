package models

import (
	"time"

	"sitework/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"size:128;not null;default:''" json:"name"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	Role            string         `gorm:"size:20;not null;index" json:"role"` // ADMIN | MEMBER
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	GoogleID        *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups (avoids duplicate '' on unique index)
	AvatarURL       string         `gorm:"size:512" json:"avatar_url"`
	TOTPSecret      string         `gorm:"size:128" json:"-"`
	TOTPEnabledAt   *time.Time     `json:"totp_enabled_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Preference *NotificationPreference `gorm:"foreignKey:UserID" json:"preference,omitempty"`
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// TOTPEnabled reports whether the user completed two-factor setup.
func (u *User) TOTPEnabled() bool { return u.TOTPEnabledAt != nil && u.TOTPSecret != "" }

// BackupCode is a single-use recovery code for accounts with 2FA enabled.
// Only the bcrypt hash is stored; UsedAt marks consumption.
type BackupCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	CodeHash  string     `gorm:"size:255;not null" json:"-"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (BackupCode) TableName() string {
	return "backup_codes"
}
