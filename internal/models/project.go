package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Address     string         `gorm:"size:512" json:"address"`
	Status      string         `gorm:"size:20;not null;index;default:'PLANNING'" json:"status"`
	BudgetCents int64          `gorm:"not null;default:0" json:"budget_cents"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
	CreatedByID uint           `gorm:"not null;index" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	CreatedBy User                `gorm:"foreignKey:CreatedByID" json:"-"`
	Members   []ProjectMembership `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMembership links a user to a project with a role (OWNER | PARTNER).
type ProjectMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index:idx_memberships_project_user,unique" json:"project_id"`
	UserID    uint      `gorm:"not null;index:idx_memberships_project_user,unique;index" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ProjectMembership) TableName() string {
	return "project_memberships"
}
