package handler

import (
	"net/http"
	"strconv"

	"sitework/internal/middleware"
	"sitework/internal/repository"

	"github.com/gin-gonic/gin"
)

// MeHandler serves the authenticated user's profile, dashboard and email log.
type MeHandler struct {
	userRepo     *repository.UserRepository
	projectRepo  *repository.ProjectRepository
	costRepo     *repository.CostRepository
	notifRepo    *repository.NotificationRepository
	emailLogRepo *repository.EmailLogRepository
	auditRepo    *repository.AuditLogRepository
}

func NewMeHandler(userRepo *repository.UserRepository, projectRepo *repository.ProjectRepository, costRepo *repository.CostRepository, notifRepo *repository.NotificationRepository, emailLogRepo *repository.EmailLogRepository, auditRepo *repository.AuditLogRepository) *MeHandler {
	return &MeHandler{userRepo: userRepo, projectRepo: projectRepo, costRepo: costRepo, notifRepo: notifRepo, emailLogRepo: emailLogRepo, auditRepo: auditRepo}
}

func (h *MeHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	u, err := h.userRepo.GetByID(userID)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "totp_enabled": u.TOTPEnabled()})
}

// Dashboard aggregates the caller's projects, spend and unread notifications.
func (h *MeHandler) Dashboard(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projects, err := h.projectRepo.ListByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard failed"})
		return
	}
	type projectSummary struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Status      string `json:"status"`
		BudgetCents int64  `json:"budget_cents"`
		TotalCents  int64  `json:"total_cents"`
	}
	summaries := make([]projectSummary, 0, len(projects))
	var totalSpend int64
	for _, p := range projects {
		total, _ := h.costRepo.TotalByProjectID(p.ID)
		totalSpend += total
		summaries = append(summaries, projectSummary{
			ID:          p.ID,
			Name:        p.Name,
			Status:      p.Status,
			BudgetCents: p.BudgetCents,
			TotalCents:  total,
		})
	}
	unread, _ := h.notifRepo.UnreadCount(userID)
	c.JSON(http.StatusOK, gin.H{
		"projects":            summaries,
		"project_count":       len(summaries),
		"total_spend_cents":   totalSpend,
		"unread_notifications": unread,
	})
}

// EmailLog lists emails the system sent to the caller with delivery status.
func (h *MeHandler) EmailLog(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, offset := pagination(c, 50)
	entries, err := h.emailLogRepo.ListByUserID(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": entries})
}

// AuditLog is admin-only: recent audit entries across all users.
func (h *MeHandler) AuditLog(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	entries, err := h.auditRepo.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_log": entries})
}
