package models

import (
	"time"
)

// AuditLog records auth events and cron-trigger invocations for operators.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"` // nil for system/cron actions
	Action    string    `gorm:"size:64;not null;index" json:"action"`
	Detail    string    `gorm:"size:512" json:"detail"`
	IP        string    `gorm:"size:64" json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
