package auth

import (
	"context"
	"testing"
	"time"

	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := database.NewTestDB(t)
	svc, err := NewService(Config{JWTSecret: "test-secret", TokenDuration: time.Hour}, db.Users)
	require.NoError(t, err)
	return svc
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	exists, err := svc.UserExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.CreateUser(ctx, "admin", "short")
	assert.ErrorIs(t, err, errs.ErrWeakPassword)

	_, err = svc.CreateUser(ctx, " ", "long-enough")
	assert.ErrorIs(t, err, errs.ErrMissingField)

	user, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.NotEqual(t, "long-enough", user.PasswordHash)

	_, err = svc.CreateUser(ctx, "second", "long-enough")
	assert.ErrorIs(t, err, errs.ErrUserExists)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "admin", "wrong-password", "")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(ctx, "nobody", "long-enough", "")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	user, needs2FA, err := svc.Authenticate(ctx, "admin", "long-enough", "")
	require.NoError(t, err)
	assert.False(t, needs2FA)
	assert.Equal(t, "admin", user.Username)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	tok, err := svc.IssueToken(&database.User{Username: "admin"})
	require.NoError(t, err)

	username, err := svc.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)

	_, err = svc.ParseToken("garbage")
	assert.Error(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := svc.IssueToken(&database.User{Username: "admin"})
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ParseToken(old)
	assert.Error(t, err)
}

func TestTwoFactorFlow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	secret, url, err := svc.Generate2FA(ctx, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")

	assert.ErrorIs(t, svc.Verify2FA(ctx, "admin", "000000x"), errs.ErrInvalidTOTP)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Verify2FA(ctx, "admin", code))

	_, needs2FA, err := svc.Authenticate(ctx, "admin", "long-enough", "")
	assert.ErrorIs(t, err, errs.ErrTwoFactorRequired)
	assert.True(t, needs2FA)

	_, _, err = svc.Authenticate(ctx, "admin", "long-enough", "123")
	assert.ErrorIs(t, err, errs.ErrInvalidTOTP)

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	user, _, err := svc.Authenticate(ctx, "admin", "long-enough", code)
	require.NoError(t, err)
	assert.True(t, user.TwoFAEnabled)

	assert.ErrorIs(t, svc.Disable2FA(ctx, "admin", "wrong-password", code), errs.ErrInvalidCredentials)
	require.NoError(t, svc.Disable2FA(ctx, "admin", "long-enough", code))

	_, needs2FA, err = svc.Authenticate(ctx, "admin", "long-enough", "")
	require.NoError(t, err)
	assert.False(t, needs2FA)
}

func TestChangePasswordAndUsername(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, "admin", "wrong-password", "another-one"), errs.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "admin", "long-enough", "short"), errs.ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(ctx, "admin", "long-enough", "another-one"))

	require.NoError(t, svc.ChangeUsername(ctx, "admin", "boss", "another-one"))
	_, _, err = svc.Authenticate(ctx, "boss", "another-one", "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "ghost", "long-enough"), errs.ErrUserNotFound)
}

func TestNewServiceGeneratesSecret(t *testing.T) {
	svc, err := NewService(Config{}, database.NewTestDB(t).Users)
	require.NoError(t, err)
	assert.Len(t, svc.Config().JWTSecret, 48)
	assert.Equal(t, 7*24*time.Hour, svc.Config().TokenDuration)
}
