package models

import (
	"time"
)

// ReportArtifact is a generated cost report held in blob storage. The blob
// carries its own expires-at metadata, which is the authoritative expiry
// check at download time; this row exists for listing and bookkeeping.
type ReportArtifact struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UID         string    `gorm:"uniqueIndex;size:36;not null" json:"uid"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	ProjectID   uint      `gorm:"not null;index" json:"project_id"`
	Format      string    `gorm:"size:10;not null" json:"format"` // csv | json
	ObjectKey   string    `gorm:"uniqueIndex;size:255;not null" json:"-"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
}

func (ReportArtifact) TableName() string {
	return "report_artifacts"
}
