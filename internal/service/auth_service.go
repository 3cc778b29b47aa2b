package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"sitework/config"
	"sitework/internal/auth"
	"sitework/internal/domain"
	"sitework/internal/models"
	"sitework/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists      = errors.New("email already registered")
	ErrInvalidCreds     = errors.New("invalid email or password")
	ErrInvalidTOTPCode  = errors.New("invalid verification code")
	ErrTOTPNotEnabled   = errors.New("two-factor authentication is not enabled")
	ErrTOTPAlreadySetup = errors.New("two-factor authentication is already enabled")
)

// LoginResult carries either a full token pair or, for 2FA accounts, a
// short-lived token for the second step.
type LoginResult struct {
	User            *models.User
	AccessToken     string
	RefreshToken    string
	RequiresTwoStep bool
	TwoFactorToken  string
}

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo}
}

func (s *AuthService) Register(name, email, password string) (*models.User, string, string, error) {
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, "", "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", err
	}
	u := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleMember,
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, "", "", err
	}
	access, refresh, err := s.issueTokens(u)
	return u, access, refresh, err
}

func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCreds
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCreds
	}
	if u.TOTPEnabled() {
		tok, err := auth.GenerateTwoFactorToken(&s.cfg.JWT, u.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{User: u, RequiresTwoStep: true, TwoFactorToken: tok}, nil
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// LoginTwoStep completes a 2FA login with either a TOTP code or a backup
// code. Backup codes are single use.
func (s *AuthService) LoginTwoStep(twoFactorToken, code string) (*LoginResult, error) {
	userID, err := auth.ParseTwoFactorToken(&s.cfg.JWT, twoFactorToken)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !u.TOTPEnabled() {
		return nil, ErrTOTPNotEnabled
	}
	if !totp.Validate(code, u.TOTPSecret) && !s.consumeBackupCode(u.ID, code) {
		return nil, ErrInvalidTOTPCode
	}
	access, refresh, err := s.issueTokens(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) consumeBackupCode(userID uint, code string) bool {
	codes, err := s.userRepo.ListActiveBackupCodes(userID)
	if err != nil {
		return false
	}
	for _, c := range codes {
		if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil {
			return s.userRepo.MarkBackupCodeUsed(c.ID) == nil
		}
	}
	return false
}

// SetupTOTP generates a secret and provisioning URI. The secret is stored
// immediately but 2FA only activates after ConfirmTOTP verifies a code.
func (s *AuthService) SetupTOTP(userID uint) (secret, uri string, err error) {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", "", err
	}
	if u.TOTPEnabled() {
		return "", "", ErrTOTPAlreadySetup
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.JWT.Issuer,
		AccountName: u.Email,
	})
	if err != nil {
		return "", "", err
	}
	u.TOTPSecret = key.Secret()
	if err := s.userRepo.Update(u); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ConfirmTOTP activates 2FA after the user proves the authenticator works,
// and returns a fresh set of single-use backup codes.
func (s *AuthService) ConfirmTOTP(userID uint, code string) ([]string, error) {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if u.TOTPSecret == "" {
		return nil, ErrTOTPNotEnabled
	}
	if u.TOTPEnabled() {
		return nil, ErrTOTPAlreadySetup
	}
	if !totp.Validate(code, u.TOTPSecret) {
		return nil, ErrInvalidTOTPCode
	}
	now := time.Now()
	u.TOTPEnabledAt = &now
	if err := s.userRepo.Update(u); err != nil {
		return nil, err
	}
	return s.RotateBackupCodes(userID)
}

// RotateBackupCodes replaces any existing backup codes with 8 new ones and
// returns them in plain text exactly once.
func (s *AuthService) RotateBackupCodes(userID uint) ([]string, error) {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !u.TOTPEnabled() && u.TOTPSecret == "" {
		return nil, ErrTOTPNotEnabled
	}
	codes := make([]string, 0, 8)
	hashes := make([]string, 0, 8)
	for len(codes) < 8 {
		code, err := randomBackupCode()
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}
	if err := s.userRepo.ReplaceBackupCodes(userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

const backupCodeAlphabet = "0123456789abcdefghjkmnpqrstuvwxyz" // no i/l/o

func randomBackupCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		if i == 5 {
			sb.WriteByte('-')
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(backupCodeAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// LoginWithGoogle creates or finds a user by Google ID and returns the user,
// tokens and an isNew flag.
func (s *AuthService) LoginWithGoogle(googleID, email, name, avatarURL string) (*models.User, string, string, bool, error) {
	u, err := s.userRepo.GetByGoogleID(googleID)
	if err == nil {
		access, refresh, err := s.issueTokens(u)
		return u, access, refresh, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", false, err
	}
	// Link Google to an existing email account if there is one.
	existing, _ := s.userRepo.GetByEmail(email)
	if existing != nil {
		gid := googleID
		existing.GoogleID = &gid
		if avatarURL != "" {
			existing.AvatarURL = avatarURL
		}
		if err := s.userRepo.Update(existing); err != nil {
			return nil, "", "", false, err
		}
		access, refresh, err := s.issueTokens(existing)
		return existing, access, refresh, false, err
	}
	gid := googleID
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	u = &models.User{
		Name:      name,
		Email:     email,
		GoogleID:  &gid,
		Role:      domain.RoleMember,
		AvatarURL: avatarURL,
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, "", "", false, err
	}
	access, refresh, err := s.issueTokens(u)
	return u, access, refresh, true, err
}

// ChangePassword updates the user's password. Requires current password verification.
func (s *AuthService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u == nil {
		return ErrInvalidCreds
	}
	if u.PasswordHash == "" {
		return errors.New("account uses Google sign-in; set a password first")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCreds
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.userRepo.Update(u)
}

func (s *AuthService) RefreshToken(refreshToken string) (access, refresh string, err error) {
	token, err := jwt.ParseWithClaims(refreshToken, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.RefreshSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", auth.ErrInvalidToken
	}
	claims := token.Claims.(*jwt.RegisteredClaims)
	var userID uint
	fmt.Sscanf(claims.Subject, "%d", &userID)
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", "", err
	}
	return s.issueTokens(u)
}

func (s *AuthService) issueTokens(u *models.User) (string, string, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return access, "", err
	}
	return access, refresh, nil
}
