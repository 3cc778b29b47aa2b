package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDigestFixture(t *testing.T) (*gorm.DB, *DigestService, *fakeSender) {
	t.Helper()
	db := newTestDB(t)
	sender := &fakeSender{failTo: map[string]bool{}}
	svc := NewDigestService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		repository.NewProjectRepository(db),
		repository.NewEmailLogRepository(db),
		sender,
	)
	return db, svc, sender
}

func queueNotification(t *testing.T, db *gorm.DB, userID uint, projectID *uint, message string) *models.QueuedNotification {
	t.Helper()
	n := &models.QueuedNotification{UserID: userID, ProjectID: projectID, EventType: domain.EventCostAdded, Message: message}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestRunDigestInvalidFrequency(t *testing.T) {
	_, svc, _ := newDigestFixture(t)
	_, err := svc.RunDigest(context.Background(), "hourly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	_, err = svc.RunDigest(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestRunDigestOneEmailPerRecipient(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	p1 := seedProject(t, db, "Lakeside Duplex", alice.ID)
	p2 := seedProject(t, db, "Hilltop Cabin", alice.ID)

	queueNotification(t, db, alice.ID, &p1.ID, "cost A")
	queueNotification(t, db, alice.ID, &p1.ID, "cost B")
	queueNotification(t, db, alice.ID, &p2.ID, "cost C")
	queueNotification(t, db, bob.ID, &p1.ID, "cost D")

	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DigestsSent)
	assert.Equal(t, int64(4), res.NotificationsProcessed)
	assert.Empty(t, res.Errors)

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	recipients := map[string]string{}
	for _, m := range msgs {
		recipients[m.To] = m.Subject
	}
	assert.Contains(t, recipients["alice@example.com"], "3 update(s) across 2 project(s)")
	assert.Contains(t, recipients["bob@example.com"], "1 update(s) across 1 project(s)")

	var remaining int64
	require.NoError(t, db.Model(&models.QueuedNotification{}).Where("processed = ?", false).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestRunDigestSecondRunSendsNothing(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	queueNotification(t, db, alice.ID, nil, "general update")

	_, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Zero(t, res.DigestsSent)
	assert.Len(t, sender.messages(), 1)
}

func TestRunDigestFailureDoesNotAbortOthers(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	bob := seedUser(t, db, "Bob", "bob@example.com")
	sender.failTo["bob@example.com"] = true

	queueNotification(t, db, alice.ID, nil, "for alice")
	queueNotification(t, db, bob.ID, nil, "for bob")

	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DigestsSent)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "send")

	// Bob's row goes back to the queue with the claim released.
	var bobRow models.QueuedNotification
	require.NoError(t, db.Where("user_id = ?", bob.ID).First(&bobRow).Error)
	assert.False(t, bobRow.Processed)
	assert.Nil(t, bobRow.ClaimToken)

	// The failure lands in the email log.
	var failLog models.EmailLogEntry
	require.NoError(t, db.Where("user_id = ? AND status = ?", bob.ID, domain.EmailStatusFailed).First(&failLog).Error)
	assert.NotEmpty(t, failLog.LastError)
}

func TestRunDigestHonorsFrequencyPreference(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	daisy := seedUser(t, db, "Daisy", "daisy@example.com")
	wendy := seedUser(t, db, "Wendy", "wendy@example.com")
	require.NoError(t, db.Create(&models.NotificationPreference{
		UserID: wendy.ID, EmailDigestFrequency: domain.FrequencyWeekly,
		EmailOnCost: true, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	}).Error)

	queueNotification(t, db, daisy.ID, nil, "daily item")
	queueNotification(t, db, wendy.ID, nil, "weekly item")

	// Daisy has no saved preference and defaults to daily.
	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DigestsSent)
	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "daisy@example.com", sender.messages()[0].To)

	res, err = svc.RunDigest(context.Background(), domain.FrequencyWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DigestsSent)
	assert.Equal(t, "wendy@example.com", sender.messages()[1].To)
}

func TestRunDigestAllSweepsEveryFrequency(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	daisy := seedUser(t, db, "Daisy", "daisy@example.com")
	wendy := seedUser(t, db, "Wendy", "wendy@example.com")
	require.NoError(t, db.Create(&models.NotificationPreference{
		UserID: wendy.ID, EmailDigestFrequency: domain.FrequencyWeekly,
		EmailOnCost: true, EmailOnDocument: true, EmailOnInvitation: true, EmailOnStatus: true,
	}).Error)
	queueNotification(t, db, daisy.ID, nil, "one")
	queueNotification(t, db, wendy.ID, nil, "two")

	res, err := svc.RunDigest(context.Background(), "all")
	require.NoError(t, err)
	assert.Equal(t, 2, res.DigestsSent)
	assert.Len(t, sender.messages(), 2)
}

func TestRunDigestReleasesStaleClaims(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	n := queueNotification(t, db, alice.ID, nil, "stuck item")

	// Simulate a run that died after claiming: stale token, never processed.
	staleAt := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(&models.QueuedNotification{}).Where("id = ?", n.ID).
		Updates(map[string]interface{}{"claim_token": "dead-run", "claimed_at": staleAt}).Error)

	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DigestsSent)
	require.Len(t, sender.messages(), 1)
	assert.True(t, strings.Contains(sender.messages()[0].TextBody, "stuck item"))
}

func TestRunDigestSkipsRowsClaimedSinceSelect(t *testing.T) {
	db, svc, sender := newDigestFixture(t)
	alice := seedUser(t, db, "Alice", "alice@example.com")
	n := queueNotification(t, db, alice.ID, nil, "contested item")

	// A fresh claim by a concurrent run: visible rows lose the claim race.
	repo := repository.NewNotificationRepository(db)
	claimed, err := repo.Claim([]uint{n.ID}, "concurrent-run")
	require.NoError(t, err)
	require.EqualValues(t, 1, claimed)

	res, err := svc.RunDigest(context.Background(), domain.FrequencyDaily)
	require.NoError(t, err)
	assert.Zero(t, res.DigestsSent)
	assert.Empty(t, sender.messages())
}
