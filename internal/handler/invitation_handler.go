package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"sitework/internal/domain"
	"sitework/internal/middleware"
	"sitework/internal/repository"
	"sitework/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type InvitationHandler struct {
	svc         *service.InvitationService
	invRepo     *repository.InvitationRepository
	projectRepo *repository.ProjectRepository
	auditRepo   *repository.AuditLogRepository
}

func NewInvitationHandler(svc *service.InvitationService, invRepo *repository.InvitationRepository, projectRepo *repository.ProjectRepository, auditRepo *repository.AuditLogRepository) *InvitationHandler {
	return &InvitationHandler{svc: svc, invRepo: invRepo, projectRepo: projectRepo, auditRepo: auditRepo}
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Invite sends a partner invitation for the :id project. Owner only.
func (h *InvitationHandler) Invite(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.projectRepo.GetMembership(uint(projectID), userID)
	if err != nil || m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if m.Role != domain.ProjectRoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner role required"})
		return
	}
	inv, err := h.svc.Invite(c.Request.Context(), userID, uint(projectID), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyMember):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		default:
			log.Printf("[invitation] invite failed: project=%d email=%s err=%v", projectID, req.Email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invite failed"})
		}
		return
	}
	h.auditRepo.Record(&userID, "partner_invited", "project:"+strconv.Itoa(int(projectID)), c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"invitation": inv})
}

// ListForProject lists invitations sent for the :id project. Owner only.
func (h *InvitationHandler) ListForProject(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	m, err := h.projectRepo.GetMembership(uint(projectID), userID)
	if err != nil || m == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}
	invs, err := h.invRepo.ListByProjectID(uint(projectID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

// Pending lists invitations addressed to the caller's email.
func (h *InvitationHandler) Pending(c *gin.Context) {
	email := middleware.GetEmail(c)
	invs, err := h.invRepo.ListPendingByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

// Accept joins the caller to the invited project as a partner.
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID := middleware.GetUserID(c)
	token := c.Param("token")
	inv, err := h.svc.Accept(token, userID)
	if err != nil {
		h.decisionError(c, err)
		return
	}
	h.auditRepo.Record(&userID, "invitation_accepted", "project:"+strconv.Itoa(int(inv.ProjectID)), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"invitation": inv})
}

func (h *InvitationHandler) Decline(c *gin.Context) {
	userID := middleware.GetUserID(c)
	token := c.Param("token")
	if err := h.svc.Decline(token); err != nil {
		h.decisionError(c, err)
		return
	}
	h.auditRepo.Record(&userID, "invitation_declined", "invitation", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "invitation declined"})
}

func (h *InvitationHandler) decisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invitation not found"})
	case errors.Is(err, service.ErrInvitationExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvitationDecided):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvitationMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[invitation] decision failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
