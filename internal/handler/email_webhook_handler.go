package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"sitework/config"
	"sitework/internal/domain"
	"sitework/internal/repository"

	"github.com/gin-gonic/gin"
)

// EmailWebhookHandler receives delivery-status callbacks from the email
// provider and records them against the email log. Unknown message IDs are
// acknowledged anyway so the provider stops retrying.
type EmailWebhookHandler struct {
	emailLogRepo *repository.EmailLogRepository
	cfg          *config.Config
}

func NewEmailWebhookHandler(emailLogRepo *repository.EmailLogRepository, cfg *config.Config) *EmailWebhookHandler {
	return &EmailWebhookHandler{emailLogRepo: emailLogRepo, cfg: cfg}
}

// Handle expects JSON: { "message_id": "...", "event": "delivered|bounced|failed", "reason": "..." }
// with an X-Webhook-Signature header (hex HMAC-SHA256 of the raw body).
func (h *EmailWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if h.cfg.Mailer.WebhookSecret != "" {
		sig := c.GetHeader("X-Webhook-Signature")
		if !h.verifySignature(body, sig) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}
	var payload struct {
		MessageID string `json:"message_id"`
		Event     string `json:"event"`
		Reason    string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.MessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id required"})
		return
	}

	var status string
	var deliveredAt *time.Time
	switch payload.Event {
	case "delivered":
		status = domain.EmailStatusDelivered
		now := time.Now()
		deliveredAt = &now
	case "bounced":
		status = domain.EmailStatusBounced
	case "failed":
		status = domain.EmailStatusFailed
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event"})
		return
	}

	updated, err := h.emailLogRepo.UpdateStatusByProviderID(payload.MessageID, status, payload.Reason, deliveredAt)
	if err != nil {
		log.Printf("[webhook] email status update failed: message_id=%s err=%v", payload.MessageID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if updated == 0 {
		log.Printf("[webhook] email status for unknown message_id=%s event=%s", payload.MessageID, payload.Event)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *EmailWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.cfg.Mailer.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
