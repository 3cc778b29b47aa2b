package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"sitework/internal/domain"
	"sitework/internal/middleware"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/internal/service"

	"github.com/gin-gonic/gin"
)

type CostHandler struct {
	costRepo    *repository.CostRepository
	projectRepo *repository.ProjectRepository
	userRepo    *repository.UserRepository
	notifSvc    *service.NotificationService
	auditRepo   *repository.AuditLogRepository
}

func NewCostHandler(costRepo *repository.CostRepository, projectRepo *repository.ProjectRepository, userRepo *repository.UserRepository, notifSvc *service.NotificationService, auditRepo *repository.AuditLogRepository) *CostHandler {
	return &CostHandler{costRepo: costRepo, projectRepo: projectRepo, userRepo: userRepo, notifSvc: notifSvc, auditRepo: auditRepo}
}

type CreateCostRequest struct {
	Category    string `json:"category" binding:"required,max=50"`
	Description string `json:"description" binding:"max=512"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	IncurredOn  string `json:"incurred_on" binding:"required"` // YYYY-MM-DD
}

func (h *CostHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, p, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	var req CreateCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	incurred, err := time.Parse("2006-01-02", req.IncurredOn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incurred_on format (use YYYY-MM-DD)"})
		return
	}
	entry := &models.CostEntry{
		ProjectID:   projectID,
		AddedByID:   userID,
		Category:    req.Category,
		Description: req.Description,
		AmountCents: req.AmountCents,
		IncurredOn:  incurred,
	}
	if err := h.costRepo.Create(entry); err != nil {
		log.Printf("[cost] create failed: project=%d err=%v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	actorName := ""
	if u, err := h.userRepo.GetByID(userID); err == nil && u != nil {
		actorName = u.Name
	}
	if memberIDs, err := h.projectRepo.MemberUserIDs(projectID); err == nil {
		h.notifSvc.NotifyCostAdded(memberIDs, userID, projectID, actorName, p.Name, entry.AmountCents)
	}
	h.auditRepo.Record(&userID, "cost_added", "project:"+strconv.Itoa(int(projectID)), c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"cost": entry})
}

func (h *CostHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, _, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	entries, err := h.costRepo.ListByProjectID(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	total, _ := h.costRepo.TotalByProjectID(projectID)
	c.JSON(http.StatusOK, gin.H{"costs": entries, "total_cents": total})
}

// Summary returns per-category totals for the project.
func (h *CostHandler) Summary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, p, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	totals, err := h.costRepo.TotalsByCategory(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	var total int64
	for _, t := range totals {
		total += t.AmountCents
	}
	c.JSON(http.StatusOK, gin.H{
		"by_category":  totals,
		"total_cents":  total,
		"budget_cents": p.BudgetCents,
	})
}

func (h *CostHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, _, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	costID, err := strconv.ParseUint(c.Param("costId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost id"})
		return
	}
	entry, err := h.costRepo.GetByID(uint(costID))
	if err != nil || entry == nil || entry.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "cost entry not found"})
		return
	}
	// Only the author or the project owner can remove an entry.
	if entry.AddedByID != userID {
		m, err := h.projectRepo.GetMembership(projectID, userID)
		if err != nil || m == nil || m.Role != domain.ProjectRoleOwner {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
	}
	if err := h.costRepo.Delete(entry.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.auditRepo.Record(&userID, "cost_deleted", "project:"+strconv.Itoa(int(projectID)), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "cost entry deleted"})
}

func (h *CostHandler) memberProject(c *gin.Context, userID uint) (uint, *models.Project, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return 0, nil, false
	}
	p, err := h.projectRepo.GetByID(uint(id))
	if err != nil || p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return 0, nil, false
	}
	if !h.projectRepo.IsMember(p.ID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return 0, nil, false
	}
	return p.ID, p, true
}
