package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"sitework/internal/middleware"
	"sitework/internal/repository"
	"sitework/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportHandler struct {
	reportSvc   *service.ReportService
	reportRepo  *repository.ReportRepository
	projectRepo *repository.ProjectRepository
	auditRepo   *repository.AuditLogRepository
}

func NewReportHandler(reportSvc *service.ReportService, reportRepo *repository.ReportRepository, projectRepo *repository.ProjectRepository, auditRepo *repository.AuditLogRepository) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc, reportRepo: reportRepo, projectRepo: projectRepo, auditRepo: auditRepo}
}

type GenerateReportRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Format    string `json:"format" binding:"required"`
}

// Generate builds a cost report for the project and stores it with a TTL.
func (h *ReportHandler) Generate(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.projectRepo.IsMember(req.ProjectID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}
	artifact, err := h.reportSvc.Generate(c.Request.Context(), userID, req.ProjectID, req.Format)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		default:
			log.Printf("[report] generate failed: project=%d format=%s err=%v", req.ProjectID, req.Format, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report generation failed"})
		}
		return
	}
	h.auditRepo.Record(&userID, "report_generated", "report:"+artifact.UID, c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"report": artifact})
}

func (h *ReportHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	reports, err := h.reportRepo.ListByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Download streams the report file. Expiry is checked against the blob's own
// metadata at request time; an expired report is removed and reported as gone.
func (h *ReportHandler) Download(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}
	artifact, err := h.reportRepo.GetByID(uint(id))
	if err != nil || artifact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if artifact.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}
	body, info, err := h.reportSvc.Download(c.Request.Context(), artifact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReportExpired), errors.Is(err, service.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "report expired or no longer available"})
		default:
			log.Printf("[report] download failed: report=%s err=%v", artifact.UID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "download failed"})
		}
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, body, nil)
}
