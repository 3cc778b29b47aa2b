package models

import (
	"time"

	"gorm.io/gorm"
)

type CostEntry struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProjectID   uint           `gorm:"not null;index" json:"project_id"`
	AddedByID   uint           `gorm:"not null;index" json:"added_by_id"`
	Category    string         `gorm:"size:50;not null;index" json:"category"`
	Description string         `gorm:"size:512" json:"description"`
	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	IncurredOn  time.Time      `gorm:"not null" json:"incurred_on"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	AddedBy User    `gorm:"foreignKey:AddedByID" json:"-"`
}

func (CostEntry) TableName() string {
	return "cost_entries"
}
