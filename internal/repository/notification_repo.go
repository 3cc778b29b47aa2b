package repository

import (
	"time"

	"sitework/internal/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.QueuedNotification) error {
	return r.db.Create(n).Error
}

func (r *NotificationRepository) ListByUserID(userID uint, limit, offset int) ([]models.QueuedNotification, error) {
	var list []models.QueuedNotification
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) MarkRead(id, userID uint) error {
	now := time.Now()
	return r.db.Model(&models.QueuedNotification{}).Where("id = ? AND user_id = ?", id, userID).Update("read_at", &now).Error
}

func (r *NotificationRepository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.QueuedNotification{}).Where("user_id = ? AND read_at IS NULL", userID).Count(&count).Error
	return count, err
}

// UnprocessedByFrequency returns unprocessed, unclaimed queue rows whose
// recipient's digest frequency matches. Users without a saved preference
// count as "daily". frequency "all" skips the preference filter entirely.
func (r *NotificationRepository) UnprocessedByFrequency(frequency string) ([]models.QueuedNotification, error) {
	var list []models.QueuedNotification
	q := r.db.Where("queued_notifications.processed = ? AND queued_notifications.claim_token IS NULL", false)
	if frequency != "all" {
		q = q.Joins("LEFT JOIN notification_preferences p ON p.user_id = queued_notifications.user_id").
			Where("COALESCE(p.email_digest_frequency, 'daily') = ?", frequency)
	}
	err := q.Order("queued_notifications.created_at ASC").Find(&list).Error
	return list, err
}

// Claim stamps a claim token on the given rows, skipping any row that is
// already processed or claimed by a concurrent run. Returns how many rows
// the token actually won.
func (r *NotificationRepository) Claim(ids []uint, token string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	res := r.db.Model(&models.QueuedNotification{}).
		Where("id IN ? AND processed = ? AND claim_token IS NULL", ids, false).
		Updates(map[string]interface{}{"claim_token": token, "claimed_at": &now})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) ListByClaim(token string) ([]models.QueuedNotification, error) {
	var list []models.QueuedNotification
	err := r.db.Where("claim_token = ?", token).Order("created_at ASC").Find(&list).Error
	return list, err
}

// MarkProcessedByClaim finalizes a successful send: every row the token
// claimed becomes processed in one update.
func (r *NotificationRepository) MarkProcessedByClaim(token string) (int64, error) {
	res := r.db.Model(&models.QueuedNotification{}).
		Where("claim_token = ?", token).
		Update("processed", true)
	return res.RowsAffected, res.Error
}

// ReleaseClaim returns unsent rows to the queue so the next run retries them.
func (r *NotificationRepository) ReleaseClaim(token string) error {
	return r.db.Model(&models.QueuedNotification{}).
		Where("claim_token = ? AND processed = ?", token, false).
		Updates(map[string]interface{}{"claim_token": nil, "claimed_at": nil}).Error
}

// ReleaseStaleClaims frees rows claimed before cutoff but never processed,
// e.g. when a run died between claim and send.
func (r *NotificationRepository) ReleaseStaleClaims(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.QueuedNotification{}).
		Where("processed = ? AND claim_token IS NOT NULL AND claimed_at < ?", false, cutoff).
		Updates(map[string]interface{}{"claim_token": nil, "claimed_at": nil})
	return res.RowsAffected, res.Error
}

// DeleteOlderThan purges rows created before cutoff regardless of processed
// state. Retention is age-based only.
func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.QueuedNotification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) CountOlderThan(cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.QueuedNotification{}).Where("created_at < ?", cutoff).Count(&count).Error
	return count, err
}
