package repository

import (
	"errors"

	"sitework/internal/models"

	"gorm.io/gorm"
)

type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) GetByUserID(userID uint) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrDefault returns the saved preference, or the default set for users
// who never opened the settings screen. The default is not persisted.
func (r *PreferenceRepository) GetOrDefault(userID uint) (*models.NotificationPreference, error) {
	p, err := r.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultPreference(userID), nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PreferenceRepository) Upsert(p *models.NotificationPreference) error {
	existing, err := r.GetByUserID(p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.Create(p).Error
		}
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return r.db.Save(p).Error
}
