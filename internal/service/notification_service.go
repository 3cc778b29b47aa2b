package service

import (
	"context"
	"fmt"
	"log"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/pkg/mailer"
)

// Feed pushes notifications to connected WebSocket clients. Nil disables
// live delivery (tests, CLI).
type Feed interface {
	BroadcastToUser(userID uint, payload interface{})
}

// NotificationService enqueues per-event notifications. Preference toggles
// are applied here, upstream of the digest batcher: a disabled event type
// or a "never" frequency produces a row that is already processed, so it
// shows up in-app but never reaches the email path.
type NotificationService struct {
	repo         *repository.NotificationRepository
	prefRepo     *repository.PreferenceRepository
	userRepo     *repository.UserRepository
	emailLogRepo *repository.EmailLogRepository
	mail         mailer.Sender
	feed         Feed
}

func NewNotificationService(
	repo *repository.NotificationRepository,
	prefRepo *repository.PreferenceRepository,
	userRepo *repository.UserRepository,
	emailLogRepo *repository.EmailLogRepository,
	mail mailer.Sender,
	feed Feed,
) *NotificationService {
	return &NotificationService{
		repo:         repo,
		prefRepo:     prefRepo,
		userRepo:     userRepo,
		emailLogRepo: emailLogRepo,
		mail:         mail,
		feed:         feed,
	}
}

// Notify records one event for a user and dispatches it according to the
// user's preference: queued for a digest, emailed immediately, or in-app only.
func (s *NotificationService) Notify(userID uint, projectID *uint, eventType, message string) error {
	pref, err := s.prefRepo.GetOrDefault(userID)
	if err != nil {
		return err
	}
	emailable := pref.AllowsEvent(eventType) && pref.EmailDigestFrequency != domain.FrequencyNever

	n := &models.QueuedNotification{
		UserID:    userID,
		ProjectID: projectID,
		EventType: eventType,
		Message:   message,
		Processed: !emailable,
	}
	if err := s.repo.Create(n); err != nil {
		return err
	}
	if s.feed != nil {
		s.feed.BroadcastToUser(userID, n)
	}
	if emailable && pref.EmailDigestFrequency == domain.FrequencyImmediate {
		s.sendImmediate(n)
	}
	return nil
}

// sendImmediate delivers a single-event email right away. On failure the row
// stays unprocessed so a later digest run with frequency "all" can retry it.
func (s *NotificationService) sendImmediate(n *models.QueuedNotification) {
	u, err := s.userRepo.GetByID(n.UserID)
	if err != nil {
		log.Printf("[notify] immediate: user %d lookup failed: %v", n.UserID, err)
		return
	}
	subject := "Sitework: " + eventLabel(n.EventType)
	msgID, err := s.mail.Send(context.Background(), mailer.Message{
		To:       u.Email,
		Subject:  subject,
		TextBody: n.Message,
		HTMLBody: fmt.Sprintf("<p>%s</p>", n.Message),
	})
	if err != nil {
		log.Printf("[notify] immediate send to user %d failed: %v", n.UserID, err)
		_ = s.emailLogRepo.Create(&models.EmailLogEntry{
			UserID:    n.UserID,
			Subject:   subject,
			Status:    domain.EmailStatusFailed,
			LastError: err.Error(),
		})
		return
	}
	if _, err := s.repo.Claim([]uint{n.ID}, "immediate-"+msgID); err == nil {
		_, _ = s.repo.MarkProcessedByClaim("immediate-" + msgID)
	}
	_ = s.emailLogRepo.Create(&models.EmailLogEntry{
		UserID:            n.UserID,
		Subject:           subject,
		ProviderMessageID: msgID,
		Status:            domain.EmailStatusSent,
	})
}

func eventLabel(eventType string) string {
	switch eventType {
	case domain.EventCostAdded:
		return "cost added"
	case domain.EventDocumentUploaded:
		return "document uploaded"
	case domain.EventInvitation:
		return "partner invitation"
	case domain.EventPartnerJoined:
		return "partner joined"
	case domain.EventStatusChanged:
		return "project status changed"
	default:
		return "project update"
	}
}

// NotifyMembers fans an event out to every project member except the actor.
func (s *NotificationService) NotifyMembers(memberIDs []uint, actorID uint, projectID uint, eventType, message string) {
	pid := projectID
	for _, id := range memberIDs {
		if id == actorID {
			continue
		}
		if err := s.Notify(id, &pid, eventType, message); err != nil {
			log.Printf("[notify] user %d event %s: %v", id, eventType, err)
		}
	}
}

func (s *NotificationService) NotifyCostAdded(memberIDs []uint, actorID, projectID uint, actorName, projectName string, amountCents int64) {
	msg := fmt.Sprintf("%s added a cost of %.2f to %s", actorName, float64(amountCents)/100, projectName)
	s.NotifyMembers(memberIDs, actorID, projectID, domain.EventCostAdded, msg)
}

func (s *NotificationService) NotifyDocumentUploaded(memberIDs []uint, actorID, projectID uint, actorName, projectName, docName string) {
	msg := fmt.Sprintf("%s uploaded %q to %s", actorName, docName, projectName)
	s.NotifyMembers(memberIDs, actorID, projectID, domain.EventDocumentUploaded, msg)
}

func (s *NotificationService) NotifyStatusChanged(memberIDs []uint, actorID, projectID uint, projectName, newStatus string) {
	msg := fmt.Sprintf("%s moved to %s", projectName, newStatus)
	s.NotifyMembers(memberIDs, actorID, projectID, domain.EventStatusChanged, msg)
}

func (s *NotificationService) NotifyPartnerJoined(memberIDs []uint, actorID, projectID uint, partnerName, projectName string) {
	msg := fmt.Sprintf("%s joined %s as a partner", partnerName, projectName)
	s.NotifyMembers(memberIDs, actorID, projectID, domain.EventPartnerJoined, msg)
}
