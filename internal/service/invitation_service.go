package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/pkg/mailer"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyMember      = errors.New("user is already a project member")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationDecided  = errors.New("invitation was already accepted or declined")
	ErrInvitationMismatch = errors.New("invitation was sent to a different email")
)

const invitationTTL = 7 * 24 * time.Hour

// InvitationService handles inviting partners to projects by email.
type InvitationService struct {
	repo         *repository.InvitationRepository
	projectRepo  *repository.ProjectRepository
	userRepo     *repository.UserRepository
	emailLogRepo *repository.EmailLogRepository
	notifSvc     *NotificationService
	mail         mailer.Sender
	appBaseURL   string
}

func NewInvitationService(
	repo *repository.InvitationRepository,
	projectRepo *repository.ProjectRepository,
	userRepo *repository.UserRepository,
	emailLogRepo *repository.EmailLogRepository,
	notifSvc *NotificationService,
	mail mailer.Sender,
	appBaseURL string,
) *InvitationService {
	return &InvitationService{
		repo:         repo,
		projectRepo:  projectRepo,
		userRepo:     userRepo,
		emailLogRepo: emailLogRepo,
		notifSvc:     notifSvc,
		mail:         mail,
		appBaseURL:   appBaseURL,
	}
}

// Invite creates a pending invitation and emails the invitee. Invitation
// emails always go out immediately; the digest only covers project events.
func (s *InvitationService) Invite(ctx context.Context, inviterID, projectID uint, email string) (*models.PartnerInvitation, error) {
	project, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.userRepo.GetByID(inviterID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.userRepo.GetByEmail(email); err == nil {
		if s.projectRepo.IsMember(projectID, existing.ID) {
			return nil, ErrAlreadyMember
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	inv := &models.PartnerInvitation{
		ProjectID: projectID,
		InviterID: inviterID,
		Email:     email,
		Token:     uuid.NewString(),
		Status:    domain.InvitationStatusPending,
		ExpiresAt: time.Now().Add(invitationTTL),
	}
	if err := s.repo.Create(inv); err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/invitations/%s", s.appBaseURL, inv.Token)
	subject := fmt.Sprintf("%s invited you to %s on Sitework", inviter.Name, project.Name)
	msgID, err := s.mail.Send(ctx, mailer.Message{
		To:      email,
		Subject: subject,
		HTMLBody: fmt.Sprintf("<p>%s invited you to join the project <strong>%s</strong> as a partner.</p><p><a href=%q>Accept invitation</a> (valid for 7 days)</p>",
			inviter.Name, project.Name, link),
		TextBody: fmt.Sprintf("%s invited you to join %s. Accept: %s", inviter.Name, project.Name, link),
	})
	if err != nil {
		// The invitation stays valid; the invitee can still be handed the link.
		log.Printf("[invite] email to %s failed: %v", email, err)
		_ = s.emailLogRepo.Create(&models.EmailLogEntry{
			UserID:    inviterID,
			Subject:   subject,
			Status:    domain.EmailStatusFailed,
			LastError: err.Error(),
		})
		return inv, nil
	}
	_ = s.emailLogRepo.Create(&models.EmailLogEntry{
		UserID:            inviterID,
		Subject:           subject,
		ProviderMessageID: msgID,
		Status:            domain.EmailStatusSent,
	})
	return inv, nil
}

// Accept adds the accepting user as a partner and notifies existing members.
// The accepting user's email must match the invitation.
func (s *InvitationService) Accept(token string, userID uint) (*models.PartnerInvitation, error) {
	inv, err := s.repo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitationStatusPending {
		return nil, ErrInvitationDecided
	}
	if inv.Expired(time.Now()) {
		inv.Status = domain.InvitationStatusExpired
		_ = s.repo.Update(inv)
		return nil, ErrInvitationExpired
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u.Email != inv.Email {
		return nil, ErrInvitationMismatch
	}
	if s.projectRepo.IsMember(inv.ProjectID, userID) {
		return nil, ErrAlreadyMember
	}

	memberIDs, err := s.projectRepo.MemberUserIDs(inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.projectRepo.AddMember(inv.ProjectID, userID, domain.ProjectRolePartner); err != nil {
		return nil, err
	}
	now := time.Now()
	inv.Status = domain.InvitationStatusAccepted
	inv.DecidedAt = &now
	if err := s.repo.Update(inv); err != nil {
		return nil, err
	}
	s.notifSvc.NotifyPartnerJoined(memberIDs, userID, inv.ProjectID, u.Name, inv.Project.Name)
	return inv, nil
}

func (s *InvitationService) Decline(token string) error {
	inv, err := s.repo.GetByToken(token)
	if err != nil {
		return err
	}
	if inv.Status != domain.InvitationStatusPending {
		return ErrInvitationDecided
	}
	now := time.Now()
	inv.Status = domain.InvitationStatusDeclined
	inv.DecidedAt = &now
	return s.repo.Update(inv)
}
