package service

import (
	"errors"
	"time"

	"sitework/internal/repository"
)

var ErrInvalidDays = errors.New("days must be a positive integer")

// CleanupService bounds the size of the notification queue table. Retention
// is purely age-based and ignores the processed flag.
type CleanupService struct {
	repo *repository.NotificationRepository
}

func NewCleanupService(repo *repository.NotificationRepository) *CleanupService {
	return &CleanupService{repo: repo}
}

// CleanupOldNotifications deletes every queued notification created before
// now minus daysOld. Returns the deleted count and the cutoff used. Running
// it twice with the same threshold deletes nothing the second time.
func (s *CleanupService) CleanupOldNotifications(daysOld int) (int64, time.Time, error) {
	cutoff, err := retentionCutoff(daysOld)
	if err != nil {
		return 0, time.Time{}, err
	}
	deleted, err := s.repo.DeleteOlderThan(cutoff)
	return deleted, cutoff, err
}

// CountOldNotifications reports what CleanupOldNotifications would delete,
// without deleting. Used for dry runs and confirmation prompts.
func (s *CleanupService) CountOldNotifications(daysOld int) (int64, time.Time, error) {
	cutoff, err := retentionCutoff(daysOld)
	if err != nil {
		return 0, time.Time{}, err
	}
	count, err := s.repo.CountOlderThan(cutoff)
	return count, cutoff, err
}

func retentionCutoff(daysOld int) (time.Time, error) {
	if daysOld <= 0 {
		return time.Time{}, ErrInvalidDays
	}
	return time.Now().AddDate(0, 0, -daysOld), nil
}
