package service

import (
	"testing"
	"time"

	"sitework/config"
	"sitework/internal/repository"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{JWT: config.JWTConfig{
		AccessSecret:  "test-access",
		RefreshSecret: "test-refresh",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "sitework-test",
	}}
	return NewAuthService(cfg, repository.NewUserRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthFixture(t)

	u, access, refresh, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	_, _, _, err = svc.Register("Alice Again", "alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrEmailExists)

	res, err := svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoStep)
	assert.NotEmpty(t, res.AccessToken)

	_, err = svc.Login("alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = svc.Login("nobody@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestTwoFactorLoginFlow(t *testing.T) {
	svc := newAuthFixture(t)
	u, _, _, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	secret, uri, err := svc.SetupTOTP(u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, uri, "otpauth://")

	// Setup alone must not flip the account to 2FA.
	res, err := svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoStep)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	backupCodes, err := svc.ConfirmTOTP(u.ID, code)
	require.NoError(t, err)
	assert.Len(t, backupCodes, 8)

	res, err = svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.True(t, res.RequiresTwoStep)
	assert.Empty(t, res.AccessToken)
	require.NotEmpty(t, res.TwoFactorToken)

	_, err = svc.LoginTwoStep(res.TwoFactorToken, "000000")
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	full, err := svc.LoginTwoStep(res.TwoFactorToken, code)
	require.NoError(t, err)
	assert.NotEmpty(t, full.AccessToken)
	assert.NotEmpty(t, full.RefreshToken)
}

func TestBackupCodesAreSingleUse(t *testing.T) {
	svc := newAuthFixture(t)
	u, _, _, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	secret, _, err := svc.SetupTOTP(u.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	backupCodes, err := svc.ConfirmTOTP(u.ID, code)
	require.NoError(t, err)
	require.Len(t, backupCodes, 8)

	res, err := svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.True(t, res.RequiresTwoStep)

	full, err := svc.LoginTwoStep(res.TwoFactorToken, backupCodes[0])
	require.NoError(t, err)
	assert.NotEmpty(t, full.AccessToken)

	// The same code is spent now.
	res, err = svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, err = svc.LoginTwoStep(res.TwoFactorToken, backupCodes[0])
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)

	// Rotation invalidates all remaining codes.
	fresh, err := svc.RotateBackupCodes(u.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 8)
	res, err = svc.Login("alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, err = svc.LoginTwoStep(res.TwoFactorToken, backupCodes[1])
	assert.ErrorIs(t, err, ErrInvalidTOTPCode)
	_, err = svc.LoginTwoStep(res.TwoFactorToken, fresh[0])
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	svc := newAuthFixture(t)
	u, _, _, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	err = svc.ChangePassword(u.ID, "wrong", "newpassword123")
	assert.ErrorIs(t, err, ErrInvalidCreds)

	require.NoError(t, svc.ChangePassword(u.ID, "hunter2hunter2", "newpassword123"))
	_, err = svc.Login("alice@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = svc.Login("alice@example.com", "newpassword123")
	assert.NoError(t, err)
}

func TestRefreshToken(t *testing.T) {
	svc := newAuthFixture(t)
	_, _, refresh, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	access2, refresh2, err := svc.RefreshToken(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEmpty(t, refresh2)

	_, _, err = svc.RefreshToken("garbage")
	assert.Error(t, err)
}
