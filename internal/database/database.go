package database

import (
	"log"

	"sitework/config"
	"sitework/internal/domain"
	"sitework/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.BackupCode{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.CostEntry{},
		&models.PartnerInvitation{},
		&models.ProjectDocument{},
		&models.QueuedNotification{},
		&models.NotificationPreference{},
		&models.EmailLogEntry{},
		&models.ReportArtifact{},
		&models.AuditLog{},
	)
}

// SeedAdmin creates the initial admin account when the users table is empty.
func SeedAdmin(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin12345"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[seed] bcrypt: %v", err)
		return
	}
	admin := &models.User{
		Name:         "Admin",
		Email:        "admin@sitework.local",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		log.Printf("[seed] admin: %v", err)
		return
	}
	log.Printf("[seed] created admin@sitework.local (change the password)")
}
