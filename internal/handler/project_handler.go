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

type ProjectHandler struct {
	projectRepo *repository.ProjectRepository
	costRepo    *repository.CostRepository
	notifSvc    *service.NotificationService
	auditRepo   *repository.AuditLogRepository
}

func NewProjectHandler(projectRepo *repository.ProjectRepository, costRepo *repository.CostRepository, notifSvc *service.NotificationService, auditRepo *repository.AuditLogRepository) *ProjectHandler {
	return &ProjectHandler{projectRepo: projectRepo, costRepo: costRepo, notifSvc: notifSvc, auditRepo: auditRepo}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=255"`
	Description string `json:"description"`
	Address     string `json:"address"`
	BudgetCents int64  `json:"budget_cents" binding:"min=0"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD, optional
	EndDate     string `json:"end_date"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Status      *string `json:"status"`
	BudgetCents *int64  `json:"budget_cents"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := &models.Project{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Status:      domain.ProjectStatusPlanning,
		BudgetCents: req.BudgetCents,
		CreatedByID: userID,
	}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format (use YYYY-MM-DD)"})
			return
		}
		p.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format (use YYYY-MM-DD)"})
			return
		}
		p.EndDate = &t
	}
	if err := h.projectRepo.Create(p); err != nil {
		log.Printf("[project] create failed: user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.auditRepo.Record(&userID, "project_created", "project:"+strconv.Itoa(int(p.ID)), c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

func (h *ProjectHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projects, err := h.projectRepo.ListByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	total, _ := h.costRepo.TotalByProjectID(p.ID)
	c.JSON(http.StatusOK, gin.H{"project": p, "total_cost_cents": total})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, ok := h.ownedProject(c, userID)
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	statusChanged := false
	if req.Status != nil && *req.Status != p.Status {
		if !validStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		p.Status = *req.Status
		statusChanged = true
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.BudgetCents != nil {
		if *req.BudgetCents < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "budget_cents must be >= 0"})
			return
		}
		p.BudgetCents = *req.BudgetCents
	}
	if req.StartDate != nil {
		t, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format (use YYYY-MM-DD)"})
			return
		}
		p.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format (use YYYY-MM-DD)"})
			return
		}
		p.EndDate = &t
	}
	if err := h.projectRepo.Update(p); err != nil {
		log.Printf("[project] update failed: project=%d err=%v", p.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if statusChanged {
		if memberIDs, err := h.projectRepo.MemberUserIDs(p.ID); err == nil {
			h.notifSvc.NotifyStatusChanged(memberIDs, userID, p.ID, p.Name, p.Status)
		}
	}
	h.auditRepo.Record(&userID, "project_updated", "project:"+strconv.Itoa(int(p.ID)), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, ok := h.ownedProject(c, userID)
	if !ok {
		return
	}
	if err := h.projectRepo.Delete(p.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.auditRepo.Record(&userID, "project_deleted", "project:"+strconv.Itoa(int(p.ID)), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

func (h *ProjectHandler) Members(c *gin.Context) {
	userID := middleware.GetUserID(c)
	p, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": p.Members})
}

// memberProject loads the :id project and checks the caller is a member.
func (h *ProjectHandler) memberProject(c *gin.Context, userID uint) (*models.Project, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return nil, false
	}
	p, err := h.projectRepo.GetByID(uint(id))
	if err != nil || p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return nil, false
	}
	if !h.projectRepo.IsMember(p.ID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return nil, false
	}
	return p, true
}

// ownedProject loads the :id project and checks the caller holds the OWNER role.
func (h *ProjectHandler) ownedProject(c *gin.Context, userID uint) (*models.Project, bool) {
	p, ok := h.memberProject(c, userID)
	if !ok {
		return nil, false
	}
	m, err := h.projectRepo.GetMembership(p.ID, userID)
	if err != nil || m == nil || m.Role != domain.ProjectRoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner role required"})
		return nil, false
	}
	return p, true
}

func validStatus(s string) bool {
	switch s {
	case domain.ProjectStatusPlanning, domain.ProjectStatusInProgress, domain.ProjectStatusOnHold, domain.ProjectStatusCompleted:
		return true
	}
	return false
}
