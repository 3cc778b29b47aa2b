package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/pkg/mailer"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
)

var ErrInvalidFrequency = errors.New("frequency must be daily, weekly or all")

// Claims older than this belong to a run that died mid-flight and are
// returned to the queue before selecting.
const staleClaimAge = time.Hour

// DigestResult summarizes one batcher run.
type DigestResult struct {
	DigestsSent            int      `json:"digests_sent"`
	NotificationsProcessed int64    `json:"notifications_processed"`
	Errors                 []string `json:"errors,omitempty"`
}

// DigestService converts the backlog of queued notifications into one
// summary email per recipient. Rows are claimed atomically before sending,
// so overlapping runs never put the same notification in two digests.
type DigestService struct {
	repo         *repository.NotificationRepository
	userRepo     *repository.UserRepository
	projectRepo  *repository.ProjectRepository
	emailLogRepo *repository.EmailLogRepository
	mail         mailer.Sender
}

func NewDigestService(
	repo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	projectRepo *repository.ProjectRepository,
	emailLogRepo *repository.EmailLogRepository,
	mail mailer.Sender,
) *DigestService {
	return &DigestService{
		repo:         repo,
		userRepo:     userRepo,
		projectRepo:  projectRepo,
		emailLogRepo: emailLogRepo,
		mail:         mail,
	}
}

// RunDigest selects unprocessed notifications for recipients on the given
// frequency ("daily", "weekly", or "all" for every unprocessed row), groups
// them per recipient and per project, and sends one summary email each.
// A single recipient's failure never aborts the run; failed recipients keep
// their rows queued for the next run.
func (s *DigestService) RunDigest(ctx context.Context, frequency string) (*DigestResult, error) {
	switch frequency {
	case domain.FrequencyDaily, domain.FrequencyWeekly, "all":
	default:
		return nil, ErrInvalidFrequency
	}

	if released, err := s.repo.ReleaseStaleClaims(time.Now().Add(-staleClaimAge)); err != nil {
		log.Printf("[digest] releasing stale claims: %v", err)
	} else if released > 0 {
		log.Printf("[digest] released %d stale claims", released)
	}

	rows, err := s.repo.UnprocessedByFrequency(frequency)
	if err != nil {
		return nil, err
	}
	result := &DigestResult{}
	if len(rows) == 0 {
		return result, nil
	}

	byUser := lo.GroupBy(rows, func(n models.QueuedNotification) uint { return n.UserID })
	for userID, items := range byUser {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("user %d: %v", userID, err))
			continue
		}
		sent, processed, err := s.sendDigestTo(ctx, userID, items)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("user %d: %v", userID, err))
			continue
		}
		if sent {
			result.DigestsSent++
			result.NotificationsProcessed += processed
		}
	}
	log.Printf("[digest] frequency=%s sent=%d processed=%d errors=%d",
		frequency, result.DigestsSent, result.NotificationsProcessed, len(result.Errors))
	return result, nil
}

// sendDigestTo claims the recipient's rows, renders and sends one email, and
// marks the claimed rows processed. Returns sent=false when a concurrent run
// already claimed everything.
func (s *DigestService) sendDigestTo(ctx context.Context, userID uint, items []models.QueuedNotification) (sent bool, processed int64, err error) {
	token := uuid.NewString()
	ids := lo.Map(items, func(n models.QueuedNotification, _ int) uint { return n.ID })
	claimed, err := s.repo.Claim(ids, token)
	if err != nil {
		return false, 0, fmt.Errorf("claim: %w", err)
	}
	if claimed == 0 {
		return false, 0, nil
	}
	rows, err := s.repo.ListByClaim(token)
	if err != nil {
		_ = s.repo.ReleaseClaim(token)
		return false, 0, err
	}

	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		_ = s.repo.ReleaseClaim(token)
		return false, 0, fmt.Errorf("lookup: %w", err)
	}

	subject, html, text := s.render(u, rows)
	var providerID string
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	sendErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := s.mail.Send(ctx, mailer.Message{To: u.Email, Subject: subject, HTMLBody: html, TextBody: text})
		if err != nil {
			return retry.RetryableError(err)
		}
		providerID = id
		return nil
	})
	if sendErr != nil {
		_ = s.repo.ReleaseClaim(token)
		_ = s.emailLogRepo.Create(&models.EmailLogEntry{
			UserID:    userID,
			Subject:   subject,
			Status:    domain.EmailStatusFailed,
			LastError: sendErr.Error(),
		})
		return false, 0, fmt.Errorf("send: %w", sendErr)
	}

	processed, err = s.repo.MarkProcessedByClaim(token)
	if err != nil {
		// Email went out but the flag update failed; the rows will be
		// re-sent next run. Surface it so operators see the duplicate risk.
		return true, 0, fmt.Errorf("mark processed: %w", err)
	}
	_ = s.emailLogRepo.Create(&models.EmailLogEntry{
		UserID:            userID,
		Subject:           subject,
		ProviderMessageID: providerID,
		Status:            domain.EmailStatusSent,
	})
	return true, processed, nil
}

// render builds the digest subject and bodies: a count per project and the
// most recent message per project group.
func (s *DigestService) render(u *models.User, rows []models.QueuedNotification) (subject, html, text string) {
	byProject := lo.GroupBy(rows, func(n models.QueuedNotification) uint {
		if n.ProjectID == nil {
			return 0
		}
		return *n.ProjectID
	})
	projectIDs := lo.Keys(byProject)
	sort.Slice(projectIDs, func(i, j int) bool { return projectIDs[i] < projectIDs[j] })

	var htmlB, textB strings.Builder
	htmlB.WriteString(fmt.Sprintf("<p>Hi %s, here is what happened on your projects:</p><ul>", u.Name))
	for _, pid := range projectIDs {
		group := byProject[pid]
		latest := group[len(group)-1] // rows are ordered oldest first
		name := s.projectName(pid)
		htmlB.WriteString(fmt.Sprintf("<li><strong>%s</strong>: %d update(s) &mdash; latest: %s</li>", name, len(group), latest.Message))
		textB.WriteString(fmt.Sprintf("%s: %d update(s), latest: %s\n", name, len(group), latest.Message))
	}
	htmlB.WriteString("</ul>")

	subject = fmt.Sprintf("Sitework digest: %d update(s) across %d project(s)", len(rows), len(projectIDs))
	return subject, htmlB.String(), textB.String()
}

func (s *DigestService) projectName(projectID uint) string {
	if projectID == 0 {
		return "General"
	}
	p, err := s.projectRepo.GetByID(projectID)
	if err != nil {
		return fmt.Sprintf("Project #%d", projectID)
	}
	return p.Name
}
