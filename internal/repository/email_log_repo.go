package repository

import (
	"time"

	"sitework/internal/models"

	"gorm.io/gorm"
)

type EmailLogRepository struct {
	db *gorm.DB
}

func NewEmailLogRepository(db *gorm.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

func (r *EmailLogRepository) Create(e *models.EmailLogEntry) error {
	return r.db.Create(e).Error
}

// UpdateStatusByProviderID applies an asynchronous delivery-status callback.
// Returns the number of matched rows so the webhook can ack unknown ids.
func (r *EmailLogRepository) UpdateStatusByProviderID(providerMessageID, status, lastError string, deliveredAt *time.Time) (int64, error) {
	updates := map[string]interface{}{"status": status, "last_error": lastError}
	if deliveredAt != nil {
		updates["delivered_at"] = deliveredAt
	}
	res := r.db.Model(&models.EmailLogEntry{}).
		Where("provider_message_id = ?", providerMessageID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *EmailLogRepository) ListByUserID(userID uint, limit, offset int) ([]models.EmailLogEntry, error) {
	var list []models.EmailLogEntry
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
