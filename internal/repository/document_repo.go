package repository

import (
	"sitework/internal/models"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(d *models.ProjectDocument) error {
	return r.db.Create(d).Error
}

func (r *DocumentRepository) GetByID(id uint) (*models.ProjectDocument, error) {
	var d models.ProjectDocument
	err := r.db.First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) ListByProjectID(projectID uint) ([]models.ProjectDocument, error) {
	var list []models.ProjectDocument
	err := r.db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *DocumentRepository) Delete(id uint) error {
	return r.db.Delete(&models.ProjectDocument{}, id).Error
}
