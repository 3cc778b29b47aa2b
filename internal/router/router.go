package router

import (
	"net/http"
	"time"

	"sitework/config"
	"sitework/internal/domain"
	"sitework/internal/handler"
	"sitework/internal/middleware"
	"sitework/internal/repository"
	"sitework/internal/service"
	"sitework/internal/ws"
	"sitework/pkg/blobstore"
	"sitework/pkg/cloudinary"
	"sitework/pkg/mailer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services bundles the services shared between HTTP routes and the scheduler.
type Services struct {
	Digest  *service.DigestService
	Cleanup *service.CleanupService
	Report  *service.ReportService
}

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, mail mailer.Sender, store blobstore.Store) (*gin.Engine, *Services) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	costRepo := repository.NewCostRepository(db)
	invRepo := repository.NewInvitationRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	feedHub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(notifRepo, prefRepo, userRepo, emailLogRepo, mail, feedHub)
	invSvc := service.NewInvitationService(invRepo, projectRepo, userRepo, emailLogRepo, notifSvc, mail, cfg.Server.BaseURL)
	digestSvc := service.NewDigestService(notifRepo, userRepo, projectRepo, emailLogRepo, mail)
	cleanupSvc := service.NewCleanupService(notifRepo)
	reportSvc := service.NewReportService(reportRepo, costRepo, projectRepo, store, cfg.Reports.TTL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditRepo)
	meHandler := handler.NewMeHandler(userRepo, projectRepo, costRepo, notifRepo, emailLogRepo, auditRepo)
	projectHandler := handler.NewProjectHandler(projectRepo, costRepo, notifSvc, auditRepo)
	costHandler := handler.NewCostHandler(costRepo, projectRepo, userRepo, notifSvc, auditRepo)
	docHandler := handler.NewDocumentHandler(docRepo, projectRepo, userRepo, notifSvc, auditRepo, cloud)
	invHandler := handler.NewInvitationHandler(invSvc, invRepo, projectRepo, auditRepo)
	notifHandler := handler.NewNotificationHandler(notifRepo, prefRepo)
	reportHandler := handler.NewReportHandler(reportSvc, reportRepo, projectRepo, auditRepo)
	cronHandler := handler.NewCronHandler(digestSvc, cleanupSvc, reportSvc, cfg)
	emailWebhookHandler := handler.NewEmailWebhookHandler(emailLogRepo, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "feed_clients": feedHub.ClientCount()})
	})

	api := r.Group("/api/v1")

	// Public auth
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/login/2fa", authHandler.LoginTwoStep)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/google", googleOAuthHandler.Redirect)
		auth.GET("/google/callback", googleOAuthHandler.Callback)
		auth.POST("/google/token", googleOAuthHandler.Token)
	}

	// Provider callbacks
	api.POST("/webhooks/email", emailWebhookHandler.Handle)

	// Live notification feed (token via query param)
	api.GET("/ws/feed", ws.UpgradeFeedWS(&cfg.JWT, feedHub))

	// Authenticated
	authed := api.Group("")
	authed.Use(middleware.AuthRequired(&cfg.JWT))
	{
		authed.GET("/me", meHandler.Me)
		authed.GET("/me/dashboard", meHandler.Dashboard)
		authed.GET("/me/emails", meHandler.EmailLog)
		authed.POST("/me/password", authHandler.ChangePassword)
		authed.POST("/me/2fa/setup", authHandler.SetupTOTP)
		authed.POST("/me/2fa/confirm", authHandler.ConfirmTOTP)
		authed.POST("/me/2fa/backup-codes", authHandler.RotateBackupCodes)

		authed.POST("/projects", projectHandler.Create)
		authed.GET("/projects", projectHandler.List)
		authed.GET("/projects/:id", projectHandler.Get)
		authed.PATCH("/projects/:id", projectHandler.Update)
		authed.DELETE("/projects/:id", projectHandler.Delete)
		authed.GET("/projects/:id/members", projectHandler.Members)

		authed.POST("/projects/:id/costs", costHandler.Create)
		authed.GET("/projects/:id/costs", costHandler.List)
		authed.GET("/projects/:id/costs/summary", costHandler.Summary)
		authed.DELETE("/projects/:id/costs/:costId", costHandler.Delete)

		authed.POST("/projects/:id/documents", docHandler.Upload)
		authed.GET("/projects/:id/documents", docHandler.List)
		authed.DELETE("/projects/:id/documents/:docId", docHandler.Delete)

		authed.POST("/projects/:id/invitations", invHandler.Invite)
		authed.GET("/projects/:id/invitations", invHandler.ListForProject)
		authed.GET("/invitations", invHandler.Pending)
		authed.POST("/invitations/:token/accept", invHandler.Accept)
		authed.POST("/invitations/:token/decline", invHandler.Decline)

		authed.GET("/notifications", notifHandler.List)
		authed.POST("/notifications/:id/read", notifHandler.MarkRead)
		authed.GET("/notifications/preferences", notifHandler.GetPreferences)
		authed.PUT("/notifications/preferences", notifHandler.UpdatePreferences)

		authed.POST("/reports", reportHandler.Generate)
		authed.GET("/reports", reportHandler.List)
		authed.GET("/reports/:id/download", reportHandler.Download)

		authed.GET("/admin/audit-log", middleware.RequireRole(domain.RoleAdmin), meHandler.AuditLog)
	}

	// Scheduler trigger endpoints, shared-secret protected
	cron := api.Group("/cron")
	cron.Use(middleware.CronAuth(cfg.Cron.Secret))
	{
		cron.POST("/digest", cronHandler.RunDigest)
		cron.POST("/notifications/cleanup", cronHandler.CleanupNotifications)
		cron.POST("/reports/cleanup", cronHandler.CleanupReports)
	}

	return r, &Services{Digest: digestSvc, Cleanup: cleanupSvc, Report: reportSvc}
}
