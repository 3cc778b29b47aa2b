package repository

import (
	"time"

	"sitework/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByGoogleID(googleID string) (*models.User, error) {
	var u models.User
	err := r.db.Where("google_id = ?", googleID).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

// ReplaceBackupCodes drops any existing backup codes and stores a fresh set
// of hashes in one transaction.
func (r *UserRepository) ReplaceBackupCodes(userID uint, hashes []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.BackupCode{}).Error; err != nil {
			return err
		}
		for _, h := range hashes {
			if err := tx.Create(&models.BackupCode{UserID: userID, CodeHash: h}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *UserRepository) ListActiveBackupCodes(userID uint) ([]models.BackupCode, error) {
	var codes []models.BackupCode
	err := r.db.Where("user_id = ? AND used_at IS NULL", userID).Find(&codes).Error
	return codes, err
}

func (r *UserRepository) MarkBackupCodeUsed(id uint) error {
	now := time.Now()
	return r.db.Model(&models.BackupCode{}).Where("id = ?", id).Update("used_at", &now).Error
}
