package service

import (
	"sync"
	"testing"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeFeed struct {
	mu       sync.Mutex
	payloads map[uint]int
}

func (f *fakeFeed) BroadcastToUser(userID uint, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payloads == nil {
		f.payloads = make(map[uint]int)
	}
	f.payloads[userID]++
}

func newNotifyFixture(t *testing.T) (*gorm.DB, *NotificationService, *fakeSender, *fakeFeed) {
	t.Helper()
	db := newTestDB(t)
	sender := &fakeSender{failTo: map[string]bool{}}
	feed := &fakeFeed{}
	svc := NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewPreferenceRepository(db),
		repository.NewUserRepository(db),
		repository.NewEmailLogRepository(db),
		sender,
		feed,
	)
	return db, svc, sender, feed
}

func savePreference(t *testing.T, db *gorm.DB, pref *models.NotificationPreference) {
	t.Helper()
	require.NoError(t, db.Create(pref).Error)
}

func loadOnlyNotification(t *testing.T, db *gorm.DB, userID uint) models.QueuedNotification {
	t.Helper()
	var n models.QueuedNotification
	require.NoError(t, db.Where("user_id = ?", userID).First(&n).Error)
	return n
}

func TestNotifyDefaultPreferenceQueuesForDigest(t *testing.T) {
	db, svc, sender, feed := newNotifyFixture(t)
	u := seedUser(t, db, "Alice", "alice@example.com")

	require.NoError(t, svc.Notify(u.ID, nil, domain.EventCostAdded, "a cost was added"))

	n := loadOnlyNotification(t, db, u.ID)
	assert.False(t, n.Processed, "default daily preference should leave the row queued")
	assert.Empty(t, sender.messages(), "digest frequency must not email at enqueue time")
	assert.Equal(t, 1, feed.payloads[u.ID], "feed gets the event regardless of email settings")
}

func TestNotifyNeverFrequencyIsInAppOnly(t *testing.T) {
	db, svc, sender, _ := newNotifyFixture(t)
	u := seedUser(t, db, "Alice", "alice@example.com")
	savePreference(t, db, &models.NotificationPreference{
		UserID: u.ID, EmailDigestFrequency: domain.FrequencyNever,
		EmailOnCost: true, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	})

	require.NoError(t, svc.Notify(u.ID, nil, domain.EventCostAdded, "a cost was added"))

	n := loadOnlyNotification(t, db, u.ID)
	assert.True(t, n.Processed, "never-frequency rows are born processed so no digest picks them up")
	assert.Empty(t, sender.messages())
}

func TestNotifyDisabledEventTypeSkipsEmailPath(t *testing.T) {
	db, svc, _, _ := newNotifyFixture(t)
	u := seedUser(t, db, "Alice", "alice@example.com")
	savePreference(t, db, &models.NotificationPreference{
		UserID: u.ID, EmailDigestFrequency: domain.FrequencyDaily,
		EmailOnCost: false, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	})

	require.NoError(t, svc.Notify(u.ID, nil, domain.EventCostAdded, "a cost was added"))
	require.NoError(t, svc.Notify(u.ID, nil, domain.EventStatusChanged, "status moved"))

	var rows []models.QueuedNotification
	require.NoError(t, db.Where("user_id = ?", u.ID).Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Processed, "disabled cost toggle keeps the row in-app only")
	assert.False(t, rows[1].Processed, "status toggle still on, row stays queued")
}

func TestNotifyImmediateSendsAndMarksProcessed(t *testing.T) {
	db, svc, sender, _ := newNotifyFixture(t)
	u := seedUser(t, db, "Alice", "alice@example.com")
	savePreference(t, db, &models.NotificationPreference{
		UserID: u.ID, EmailDigestFrequency: domain.FrequencyImmediate,
		EmailOnCost: true, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	})

	require.NoError(t, svc.Notify(u.ID, nil, domain.EventCostAdded, "a cost was added"))

	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "alice@example.com", sender.messages()[0].To)

	n := loadOnlyNotification(t, db, u.ID)
	assert.True(t, n.Processed)

	var logEntry models.EmailLogEntry
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&logEntry).Error)
	assert.Equal(t, domain.EmailStatusSent, logEntry.Status)
	assert.NotEmpty(t, logEntry.ProviderMessageID)
}

func TestNotifyImmediateFailureLeavesRowQueued(t *testing.T) {
	db, svc, sender, _ := newNotifyFixture(t)
	u := seedUser(t, db, "Alice", "alice@example.com")
	sender.failTo["alice@example.com"] = true
	savePreference(t, db, &models.NotificationPreference{
		UserID: u.ID, EmailDigestFrequency: domain.FrequencyImmediate,
		EmailOnCost: true, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	})

	require.NoError(t, svc.Notify(u.ID, nil, domain.EventCostAdded, "a cost was added"))

	// The failed send leaves the row for a later "all" digest run.
	n := loadOnlyNotification(t, db, u.ID)
	assert.False(t, n.Processed)

	var logEntry models.EmailLogEntry
	require.NoError(t, db.Where("user_id = ? AND status = ?", u.ID, domain.EmailStatusFailed).First(&logEntry).Error)
	assert.NotEmpty(t, logEntry.LastError)
}

func TestNotifyMembersSkipsActor(t *testing.T) {
	db, svc, _, feed := newNotifyFixture(t)
	actor := seedUser(t, db, "Actor", "actor@example.com")
	other := seedUser(t, db, "Other", "other@example.com")
	p := seedProject(t, db, "Lakeside Duplex", actor.ID)

	svc.NotifyMembers([]uint{actor.ID, other.ID}, actor.ID, p.ID, domain.EventCostAdded, "cost added")

	var count int64
	require.NoError(t, db.Model(&models.QueuedNotification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Zero(t, feed.payloads[actor.ID])
	assert.Equal(t, 1, feed.payloads[other.ID])
}
