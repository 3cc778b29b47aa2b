package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectDocument is an uploaded file (photo, plan, permit) hosted on Cloudinary.
type ProjectDocument struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProjectID    uint           `gorm:"not null;index" json:"project_id"`
	UploadedByID uint           `gorm:"not null;index" json:"uploaded_by_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	URL          string         `gorm:"size:512;not null" json:"url"`
	ThumbnailURL string         `gorm:"size:512" json:"thumbnail_url"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Project    Project `gorm:"foreignKey:ProjectID" json:"-"`
	UploadedBy User    `gorm:"foreignKey:UploadedByID" json:"-"`
}

func (ProjectDocument) TableName() string {
	return "project_documents"
}
