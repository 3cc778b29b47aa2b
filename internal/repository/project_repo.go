package repository

import (
	"sitework/internal/domain"
	"sitework/internal/models"

	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts the project and its owner membership together.
func (r *ProjectRepository) Create(p *models.Project) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMembership{
			ProjectID: p.ID,
			UserID:    p.CreatedByID,
			Role:      domain.ProjectRoleOwner,
		}).Error
	})
}

func (r *ProjectRepository) GetByID(id uint) (*models.Project, error) {
	var p models.Project
	err := r.db.Preload("Members").Preload("Members.User").First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) ListByUserID(userID uint) ([]models.Project, error) {
	var list []models.Project
	err := r.db.
		Joins("JOIN project_memberships m ON m.project_id = projects.id").
		Where("m.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *ProjectRepository) Update(p *models.Project) error {
	return r.db.Save(p).Error
}

func (r *ProjectRepository) Delete(id uint) error {
	return r.db.Delete(&models.Project{}, id).Error
}

func (r *ProjectRepository) GetMembership(projectID, userID uint) (*models.ProjectMembership, error) {
	var m models.ProjectMembership
	err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ProjectRepository) IsMember(projectID, userID uint) bool {
	var count int64
	r.db.Model(&models.ProjectMembership{}).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&count)
	return count > 0
}

func (r *ProjectRepository) AddMember(projectID, userID uint, role string) error {
	return r.db.Create(&models.ProjectMembership{ProjectID: projectID, UserID: userID, Role: role}).Error
}

// MemberUserIDs returns the user ids of every project member.
func (r *ProjectRepository) MemberUserIDs(projectID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ProjectMembership{}).Where("project_id = ?", projectID).Pluck("user_id", &ids).Error
	return ids, err
}
