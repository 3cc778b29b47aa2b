package handler

import (
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"sitework/internal/middleware"
	"sitework/internal/models"
	"sitework/internal/repository"
	"sitework/internal/service"
	"sitework/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxDocumentBytes = 20 << 20 // 20 MB

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true,
}

type DocumentHandler struct {
	docRepo     *repository.DocumentRepository
	projectRepo *repository.ProjectRepository
	userRepo    *repository.UserRepository
	notifSvc    *service.NotificationService
	auditRepo   *repository.AuditLogRepository
	uploads     cloudinary.Client
}

func NewDocumentHandler(docRepo *repository.DocumentRepository, projectRepo *repository.ProjectRepository, userRepo *repository.UserRepository, notifSvc *service.NotificationService, auditRepo *repository.AuditLogRepository, uploads cloudinary.Client) *DocumentHandler {
	return &DocumentHandler{docRepo: docRepo, projectRepo: projectRepo, userRepo: userRepo, notifSvc: notifSvc, auditRepo: auditRepo, uploads: uploads}
}

// Upload stores a multipart "file" on Cloudinary and records it against the
// project. Images get an eager-optimized URL plus a thumbnail.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, p, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if fileHeader.Size > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large (max 20MB)"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	folder := "projects/" + strconv.Itoa(int(projectID))
	publicID := uuid.NewString()

	var url, thumbnail string
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if imageExtensions[ext] {
		url, thumbnail, err = h.uploads.UploadImage(c.Request.Context(), f, folder, publicID)
	} else {
		url, err = h.uploads.UploadFile(c.Request.Context(), f, folder, publicID)
	}
	if err != nil {
		log.Printf("[document] upload failed: project=%d file=%s err=%v", projectID, fileHeader.Filename, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	doc := &models.ProjectDocument{
		ProjectID:    projectID,
		UploadedByID: userID,
		Name:         name,
		URL:          url,
		ThumbnailURL: thumbnail,
	}
	if err := h.docRepo.Create(doc); err != nil {
		log.Printf("[document] record failed: project=%d err=%v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	actorName := ""
	if u, err := h.userRepo.GetByID(userID); err == nil && u != nil {
		actorName = u.Name
	}
	if memberIDs, err := h.projectRepo.MemberUserIDs(projectID); err == nil {
		h.notifSvc.NotifyDocumentUploaded(memberIDs, userID, projectID, actorName, p.Name, doc.Name)
	}
	h.auditRepo.Record(&userID, "document_uploaded", "project:"+strconv.Itoa(int(projectID)), c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, _, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	docs, err := h.docRepo.ListByProjectID(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	projectID, _, ok := h.memberProject(c, userID)
	if !ok {
		return
	}
	docID, err := strconv.ParseUint(c.Param("docId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	doc, err := h.docRepo.GetByID(uint(docID))
	if err != nil || doc == nil || doc.ProjectID != projectID {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if doc.UploadedByID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}
	if err := h.docRepo.Delete(doc.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.auditRepo.Record(&userID, "document_deleted", "project:"+strconv.Itoa(int(projectID)), c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

func (h *DocumentHandler) memberProject(c *gin.Context, userID uint) (uint, *models.Project, bool) {
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
