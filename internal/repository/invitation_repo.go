package repository

import (
	"sitework/internal/models"

	"gorm.io/gorm"
)

type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(i *models.PartnerInvitation) error {
	return r.db.Create(i).Error
}

func (r *InvitationRepository) GetByToken(token string) (*models.PartnerInvitation, error) {
	var i models.PartnerInvitation
	err := r.db.Preload("Project").Where("token = ?", token).First(&i).Error
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InvitationRepository) ListByProjectID(projectID uint) ([]models.PartnerInvitation, error) {
	var list []models.PartnerInvitation
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *InvitationRepository) ListPendingByEmail(email string) ([]models.PartnerInvitation, error) {
	var list []models.PartnerInvitation
	err := r.db.Preload("Project").Where("email = ? AND status = ?", email, "PENDING").Find(&list).Error
	return list, err
}

func (r *InvitationRepository) Update(i *models.PartnerInvitation) error {
	return r.db.Save(i).Error
}
