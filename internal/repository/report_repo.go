package repository

import (
	"sitework/internal/models"

	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(a *models.ReportArtifact) error {
	return r.db.Create(a).Error
}

func (r *ReportRepository) GetByID(id uint) (*models.ReportArtifact, error) {
	var a models.ReportArtifact
	err := r.db.First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ReportRepository) ListByUserID(userID uint) ([]models.ReportArtifact, error) {
	var list []models.ReportArtifact
	err := r.db.Where("user_id = ?", userID).Order("generated_at DESC").Find(&list).Error
	return list, err
}

func (r *ReportRepository) DeleteByID(id uint) error {
	return r.db.Delete(&models.ReportArtifact{}, id).Error
}

// DeleteByObjectKey removes the bookkeeping row for a reaped blob. Missing
// rows are not an error; the blob store is the source of truth.
func (r *ReportRepository) DeleteByObjectKey(key string) error {
	return r.db.Where("object_key = ?", key).Delete(&models.ReportArtifact{}).Error
}
