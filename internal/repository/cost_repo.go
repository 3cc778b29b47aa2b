package repository

import (
	"sitework/internal/models"

	"gorm.io/gorm"
)

type CostRepository struct {
	db *gorm.DB
}

func NewCostRepository(db *gorm.DB) *CostRepository {
	return &CostRepository{db: db}
}

func (r *CostRepository) Create(c *models.CostEntry) error {
	return r.db.Create(c).Error
}

func (r *CostRepository) GetByID(id uint) (*models.CostEntry, error) {
	var c models.CostEntry
	err := r.db.First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CostRepository) ListByProjectID(projectID uint) ([]models.CostEntry, error) {
	var list []models.CostEntry
	err := r.db.Where("project_id = ?", projectID).Order("incurred_on DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *CostRepository) Delete(id uint) error {
	return r.db.Delete(&models.CostEntry{}, id).Error
}

func (r *CostRepository) TotalByProjectID(projectID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.CostEntry{}).Where("project_id = ?", projectID).
		Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error
	return total, err
}

// CategoryTotal is a per-category sum used by reports.
type CategoryTotal struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Entries     int64  `json:"entries"`
}

func (r *CostRepository) TotalsByCategory(projectID uint) ([]CategoryTotal, error) {
	var totals []CategoryTotal
	err := r.db.Model(&models.CostEntry{}).
		Where("project_id = ?", projectID).
		Select("category, COALESCE(SUM(amount_cents), 0) AS amount_cents, COUNT(*) AS entries").
		Group("category").
		Order("amount_cents DESC").
		Scan(&totals).Error
	return totals, err
}
