package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"sitework/config"
	"sitework/internal/service"

	"github.com/gin-gonic/gin"
)

// CronHandler exposes the maintenance jobs to an external scheduler.
// All routes sit behind middleware.CronAuth.
type CronHandler struct {
	digestSvc  *service.DigestService
	cleanupSvc *service.CleanupService
	reportSvc  *service.ReportService
	cfg        *config.Config
}

func NewCronHandler(digestSvc *service.DigestService, cleanupSvc *service.CleanupService, reportSvc *service.ReportService, cfg *config.Config) *CronHandler {
	return &CronHandler{digestSvc: digestSvc, cleanupSvc: cleanupSvc, reportSvc: reportSvc, cfg: cfg}
}

// RunDigest flushes queued notifications into digest emails.
// frequency selects which preference buckets are flushed: daily, weekly or all.
func (h *CronHandler) RunDigest(c *gin.Context) {
	frequency := c.DefaultQuery("frequency", "all")
	start := time.Now()
	res, err := h.digestSvc.RunDigest(c.Request.Context(), frequency)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFrequency) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Printf("[cron] digest run failed: frequency=%s err=%v", frequency, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "digest run failed"})
		return
	}
	log.Printf("[cron] digest run: frequency=%s sent=%d processed=%d errors=%d took=%s",
		frequency, res.DigestsSent, res.NotificationsProcessed, len(res.Errors), time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"frequency":               frequency,
		"digests_sent":            res.DigestsSent,
		"notifications_processed": res.NotificationsProcessed,
		"errors":                  res.Errors,
	})
}

// CleanupNotifications deletes queued notifications older than ?days
// (default: configured retention). ?dryRun=true only counts.
func (h *CronHandler) CleanupNotifications(c *gin.Context) {
	days := h.cfg.Cron.RetentionDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "days must be an integer"})
			return
		}
		days = n
	}
	dryRun := c.Query("dryRun") == "true"

	if dryRun {
		count, cutoff, err := h.cleanupSvc.CountOldNotifications(days)
		if err != nil {
			h.cleanupError(c, days, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"dry_run":    true,
			"count":      count,
			"cutoff_date": cutoff.Format(time.RFC3339),
		})
		return
	}

	deleted, cutoff, err := h.cleanupSvc.CleanupOldNotifications(days)
	if err != nil {
		h.cleanupError(c, days, err)
		return
	}
	log.Printf("[cron] notification cleanup: days=%d deleted=%d cutoff=%s", days, deleted, cutoff.Format(time.RFC3339))
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"deleted_count": deleted,
		"cutoff_date":  cutoff.Format(time.RFC3339),
	})
}

func (h *CronHandler) cleanupError(c *gin.Context, days int, err error) {
	if errors.Is(err, service.ErrInvalidDays) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	log.Printf("[cron] notification cleanup failed: days=%d err=%v", days, err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "cleanup failed"})
}

// CleanupReports reaps expired report artifacts from blob storage.
func (h *CronHandler) CleanupReports(c *gin.Context) {
	res, err := h.reportSvc.CleanupExpiredReports(c.Request.Context())
	if err != nil {
		log.Printf("[cron] report cleanup failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "report cleanup failed"})
		return
	}
	log.Printf("[cron] report cleanup: scanned=%d deleted=%d errors=%d", res.Scanned, res.Deleted, len(res.Errors))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"scanned": res.Scanned,
		"deleted": res.Deleted,
		"errors":  res.Errors,
	})
}
