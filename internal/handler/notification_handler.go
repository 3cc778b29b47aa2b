package handler

import (
	"net/http"
	"strconv"

	"sitework/internal/middleware"
	"sitework/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifRepo *repository.NotificationRepository
	prefRepo  *repository.PreferenceRepository
}

func NewNotificationHandler(notifRepo *repository.NotificationRepository, prefRepo *repository.PreferenceRepository) *NotificationHandler {
	return &NotificationHandler{notifRepo: notifRepo, prefRepo: prefRepo}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, offset := pagination(c, 50)
	list, err := h.notifRepo.ListByUserID(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	unread, _ := h.notifRepo.UnreadCount(userID)
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread_count": unread})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.notifRepo.MarkRead(uint(id), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}

// GetPreferences returns the caller's digest settings, falling back to the
// defaults when none were saved yet.
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID := middleware.GetUserID(c)
	pref, err := h.prefRepo.GetOrDefault(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": pref})
}

type UpdatePreferencesRequest struct {
	EmailDigestFrequency string `json:"email_digest_frequency" binding:"required,oneof=immediate daily weekly never"`
	EmailOnCost          *bool  `json:"email_on_cost"`
	EmailOnDocument      *bool  `json:"email_on_document"`
	EmailOnInvitation    *bool  `json:"email_on_invitation"`
	EmailOnStatus        *bool  `json:"email_on_status"`
}

func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pref, err := h.prefRepo.GetOrDefault(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	pref.EmailDigestFrequency = req.EmailDigestFrequency
	applyToggle(&pref.EmailOnCost, req.EmailOnCost)
	applyToggle(&pref.EmailOnDocument, req.EmailOnDocument)
	applyToggle(&pref.EmailOnInvitation, req.EmailOnInvitation)
	applyToggle(&pref.EmailOnStatus, req.EmailOnStatus)
	if err := h.prefRepo.Upsert(pref); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": pref})
}

func applyToggle(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
