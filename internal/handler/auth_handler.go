package handler

import (
	"log"
	"net/http"

	"sitework/internal/middleware"
	"sitework/internal/repository"
	"sitework/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc       *service.AuthService
	auditRepo *repository.AuditLogRepository
}

func NewAuthHandler(svc *service.AuthService, auditRepo *repository.AuditLogRepository) *AuthHandler {
	return &AuthHandler{svc: svc, auditRepo: auditRepo}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TwoStepRequest struct {
	TwoFactorToken string `json:"two_factor_token" binding:"required"`
	Code           string `json:"code" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type ConfirmTOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, access, refresh, err := h.svc.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if err == service.ErrEmailExists {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth] register failed: email=%s err=%v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	h.auditRepo.Record(&u.ID, "register", "auth", c.ClientIP())
	c.JSON(http.StatusCreated, gin.H{
		"user":          u,
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCreds {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth] login failed: email=%s err=%v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if res.RequiresTwoStep {
		c.JSON(http.StatusOK, gin.H{
			"requires_two_step": true,
			"two_factor_token":  res.TwoFactorToken,
		})
		return
	}
	h.auditRepo.Record(&res.User.ID, "login", "auth", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"user":          res.User,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

// LoginTwoStep completes a 2FA login with a TOTP code or a backup code.
func (h *AuthHandler) LoginTwoStep(c *gin.Context) {
	var req TwoStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.LoginTwoStep(req.TwoFactorToken, req.Code)
	if err != nil {
		if err == service.ErrInvalidTOTPCode || err == service.ErrInvalidCreds {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth] two-step login failed: err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.auditRepo.Record(&res.User.ID, "login_two_step", "auth", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"user":          res.User,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	access, refresh, err := h.svc.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "refresh_token": refresh})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		if err == service.ErrInvalidCreds {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		return
	}
	h.auditRepo.Record(&userID, "change_password", "auth", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// SetupTOTP generates a new TOTP secret. 2FA stays off until the user
// confirms a code against it.
func (h *AuthHandler) SetupTOTP(c *gin.Context) {
	userID := middleware.GetUserID(c)
	secret, uri, err := h.svc.SetupTOTP(userID)
	if err != nil {
		if err == service.ErrTOTPAlreadySetup {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth] totp setup failed: user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "otpauth_url": uri})
}

// ConfirmTOTP activates 2FA and returns one-time backup codes. The codes are
// shown exactly once.
func (h *AuthHandler) ConfirmTOTP(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req ConfirmTOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	codes, err := h.svc.ConfirmTOTP(userID, req.Code)
	if err != nil {
		switch err {
		case service.ErrInvalidTOTPCode:
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case service.ErrTOTPNotEnabled:
			c.JSON(http.StatusBadRequest, gin.H{"error": "run setup first"})
		default:
			log.Printf("[auth] totp confirm failed: user=%d err=%v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "confirmation failed"})
		}
		return
	}
	h.auditRepo.Record(&userID, "totp_enabled", "auth", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"backup_codes": codes})
}

// RotateBackupCodes invalidates all existing backup codes and issues new ones.
func (h *AuthHandler) RotateBackupCodes(c *gin.Context) {
	userID := middleware.GetUserID(c)
	codes, err := h.svc.RotateBackupCodes(userID)
	if err != nil {
		if err == service.ErrTOTPNotEnabled {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[auth] backup code rotation failed: user=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rotation failed"})
		return
	}
	h.auditRepo.Record(&userID, "backup_codes_rotated", "auth", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"backup_codes": codes})
}
