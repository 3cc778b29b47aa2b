package service

import (
	"testing"
	"time"

	"sitework/internal/models"
	"sitework/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func queueAgedNotification(t *testing.T, db *gorm.DB, userID uint, age time.Duration, processed bool) {
	t.Helper()
	n := &models.QueuedNotification{
		UserID:    userID,
		EventType: "COST_ADDED",
		Message:   "aged row",
		Processed: processed,
		CreatedAt: time.Now().Add(-age),
	}
	require.NoError(t, db.Create(n).Error)
}

func TestCleanupRejectsNonPositiveDays(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(repository.NewNotificationRepository(db))

	for _, days := range []int{0, -1, -90} {
		_, _, err := svc.CleanupOldNotifications(days)
		assert.ErrorIs(t, err, ErrInvalidDays, "days=%d", days)
		_, _, err = svc.CountOldNotifications(days)
		assert.ErrorIs(t, err, ErrInvalidDays, "days=%d", days)
	}
}

func TestCleanupDeletesOnlyPastCutoff(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(repository.NewNotificationRepository(db))
	u := seedUser(t, db, "Alice", "alice@example.com")

	const day = 24 * time.Hour
	queueAgedNotification(t, db, u.ID, 95*day, true)
	queueAgedNotification(t, db, u.ID, 50*day, false)
	queueAgedNotification(t, db, u.ID, 0, false)

	count, _, err := svc.CountOldNotifications(90)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	deleted, cutoff, err := svc.CleanupOldNotifications(90)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -90), cutoff, time.Minute)

	var remaining int64
	require.NoError(t, db.Model(&models.QueuedNotification{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func TestCleanupIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(repository.NewNotificationRepository(db))
	u := seedUser(t, db, "Alice", "alice@example.com")
	queueAgedNotification(t, db, u.ID, 100*24*time.Hour, false)

	deleted, _, err := svc.CleanupOldNotifications(90)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, _, err = svc.CleanupOldNotifications(90)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCleanupIgnoresProcessedFlag(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(repository.NewNotificationRepository(db))
	u := seedUser(t, db, "Alice", "alice@example.com")

	// Retention is age-based: an unread, unprocessed row past the window
	// goes away just like a processed one.
	queueAgedNotification(t, db, u.ID, 91*24*time.Hour, false)
	queueAgedNotification(t, db, u.ID, 91*24*time.Hour, true)

	deleted, _, err := svc.CleanupOldNotifications(90)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}

func TestCleanupTighterWindowCatchesMore(t *testing.T) {
	db := newTestDB(t)
	svc := NewCleanupService(repository.NewNotificationRepository(db))
	u := seedUser(t, db, "Alice", "alice@example.com")

	const day = 24 * time.Hour
	queueAgedNotification(t, db, u.ID, 95*day, false)
	queueAgedNotification(t, db, u.ID, 50*day, false)

	deleted, _, err := svc.CleanupOldNotifications(90)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, _, err = svc.CleanupOldNotifications(30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
