package repository

import (
	"sitework/internal/models"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Record(userID *uint, action, detail, ip string) {
	// best effort; audit must never fail the request
	_ = r.db.Create(&models.AuditLog{UserID: userID, Action: action, Detail: detail, IP: ip}).Error
}

func (r *AuditLogRepository) ListRecent(limit int) ([]models.AuditLog, error) {
	var list []models.AuditLog
	err := r.db.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}
