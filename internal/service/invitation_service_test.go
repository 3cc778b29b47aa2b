package service

import (
	"context"
	"testing"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newInvitationFixture(t *testing.T) (*gorm.DB, *InvitationService, *fakeSender) {
	t.Helper()
	db := newTestDB(t)
	sender := &fakeSender{failTo: map[string]bool{}}
	notifSvc := NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewPreferenceRepository(db),
		repository.NewUserRepository(db),
		repository.NewEmailLogRepository(db),
		sender,
		nil,
	)
	svc := NewInvitationService(
		repository.NewInvitationRepository(db),
		repository.NewProjectRepository(db),
		repository.NewUserRepository(db),
		repository.NewEmailLogRepository(db),
		notifSvc,
		sender,
		"https://app.sitework.test",
	)
	return db, svc, sender
}

func TestInviteSendsEmailWithLink(t *testing.T) {
	db, svc, sender := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusPending, inv.Status)
	assert.NotEmpty(t, inv.Token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)

	require.Len(t, sender.messages(), 1)
	msg := sender.messages()[0]
	assert.Equal(t, "partner@example.com", msg.To)
	assert.Contains(t, msg.TextBody, "https://app.sitework.test/invitations/"+inv.Token)
}

func TestInviteSurvivesEmailFailure(t *testing.T) {
	db, svc, sender := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)
	sender.failTo["partner@example.com"] = true

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err, "a dead mail provider must not lose the invitation")
	assert.Equal(t, domain.InvitationStatusPending, inv.Status)

	var logEntry models.EmailLogEntry
	require.NoError(t, db.Where("status = ?", domain.EmailStatusFailed).First(&logEntry).Error)
}

func TestInviteRejectsExistingMember(t *testing.T) {
	db, svc, _ := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	partner := seedUser(t, db, "Partner", "partner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)
	require.NoError(t, db.Create(&models.ProjectMembership{ProjectID: p.ID, UserID: partner.ID, Role: domain.ProjectRolePartner}).Error)

	_, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAcceptAddsPartnerAndNotifiesMembers(t *testing.T) {
	db, svc, _ := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	partner := seedUser(t, db, "Partner", "partner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err)

	accepted, err := svc.Accept(inv.Token, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DecidedAt)

	var m models.ProjectMembership
	require.NoError(t, db.Where("project_id = ? AND user_id = ?", p.ID, partner.ID).First(&m).Error)
	assert.Equal(t, domain.ProjectRolePartner, m.Role)

	// The existing member hears about the new partner; the partner does not
	// get notified about their own arrival.
	var n models.QueuedNotification
	require.NoError(t, db.Where("event_type = ?", domain.EventPartnerJoined).First(&n).Error)
	assert.Equal(t, owner.ID, n.UserID)

	// Deciding twice is rejected.
	_, err = svc.Accept(inv.Token, partner.ID)
	assert.ErrorIs(t, err, ErrInvitationDecided)
}

func TestAcceptRequiresMatchingEmail(t *testing.T) {
	db, svc, _ := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	stranger := seedUser(t, db, "Stranger", "stranger@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err)

	_, err = svc.Accept(inv.Token, stranger.ID)
	assert.ErrorIs(t, err, ErrInvitationMismatch)
}

func TestAcceptExpiredInvitation(t *testing.T) {
	db, svc, _ := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	partner := seedUser(t, db, "Partner", "partner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.PartnerInvitation{}).Where("id = ?", inv.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err = svc.Accept(inv.Token, partner.ID)
	assert.ErrorIs(t, err, ErrInvitationExpired)

	var stored models.PartnerInvitation
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, domain.InvitationStatusExpired, stored.Status)
}

func TestDecline(t *testing.T) {
	db, svc, _ := newInvitationFixture(t)
	owner := seedUser(t, db, "Owner", "owner@example.com")
	p := seedProject(t, db, "Lakeside Duplex", owner.ID)

	inv, err := svc.Invite(context.Background(), owner.ID, p.ID, "partner@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Decline(inv.Token))

	var stored models.PartnerInvitation
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, domain.InvitationStatusDeclined, stored.Status)

	assert.ErrorIs(t, svc.Decline(inv.Token), ErrInvitationDecided)
}
