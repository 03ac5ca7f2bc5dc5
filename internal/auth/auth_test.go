package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/repository/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) (*Service, domain.UserStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := memory.NewStore().Users()
	svc, err := NewService(users, domain.AuthConfig{
		JWTSecret:     testSecret,
		TokenTTL:      time.Hour,
		MFATokenTTL:   5 * time.Minute,
		TOTPIssuer:    "LetScience",
		BcryptCost:    bcrypt.MinCost,
		AllowRegister: true,
	}, logger)
	require.NoError(t, err)
	return svc, users
}

func register(t *testing.T, svc *Service, username string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), domain.Registration{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user
}

func TestTokenIssuer(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "LetScience", time.Hour, time.Minute)
	require.NoError(t, err)

	token, expires, err := issuer.Issue(42, "alice", PurposeAccess)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := issuer.Verify(token, PurposeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Username)

	_, err = issuer.Verify(token, PurposeMFA)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenIssuer(strings.Repeat("x", 32), "LetScience", time.Hour, time.Minute)
	require.NoError(t, err)
	_, err = other.Verify(token, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token", PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := issuer.Issue(42, "alice", PurposeAccess)
	require.NoError(t, err)
	issuer.now = time.Now
	_, err = issuer.Verify(expired, PurposeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = NewTokenIssuer("", "LetScience", 0, 0)
	assert.Error(t, err)
}

func TestTOTP(t *testing.T) {
	secret, uri, err := NewTOTPKey("LetScience", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/LetScience:alice?"))

	now := time.Now()
	code, err := TOTPCode(secret, now)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.True(t, ValidateTOTP(code, secret, now))
	assert.True(t, ValidateTOTP(code, secret, now.Add(30*time.Second)))
	assert.False(t, ValidateTOTP(code, secret, now.Add(5*time.Minute)))
	assert.False(t, ValidateTOTP("", secret, now))
	assert.False(t, ValidateTOTP(code, "", now))
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestService(t)

	user := register(t, svc, "alice")
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	stored, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))

	_, err = svc.Register(ctx, domain.Registration{Username: "alice", Email: "new@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.EqualError(t, err, "Username already exists")

	_, err = svc.Register(ctx, domain.Registration{Username: "alicia", Email: "ALICE@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Register(ctx, domain.Registration{Username: "bob", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	svc.cfg.AllowRegister = false
	_, err = svc.Register(ctx, domain.Registration{Username: "carol", Email: "carol@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestService(t)
	register(t, svc, "alice")

	result, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "bearer", result.TokenType)
	require.NotNil(t, result.User)
	assert.Equal(t, "alice", result.User.Username)
	assert.False(t, result.RequiresTwoFactor)

	me, err := svc.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.NotNil(t, me.LastLogin)

	_, err = svc.Login(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	me.IsActive = false
	require.NoError(t, users.Update(ctx, me))
	_, err = svc.Login(ctx, "alice", "correct horse")
	assert.ErrorIs(t, err, ErrAccountDisabled)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Authenticate(ctx, result.AccessToken)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestService_TwoFactorFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	user := register(t, svc, "alice")

	err := svc.EnableTwoFactor(ctx, user, "123456")
	assert.ErrorIs(t, err, ErrTwoFactorNotSetup)
	assert.EqualError(t, err, "Please setup 2FA first")

	setup, err := svc.SetupTwoFactor(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRURI, "issuer=LetScience")

	assert.ErrorIs(t, svc.EnableTwoFactor(ctx, user, "000000x"), ErrInvalidCode)

	code, err := TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTwoFactor(ctx, user, code))

	pending, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.True(t, pending.RequiresTwoFactor)
	assert.Empty(t, pending.AccessToken)
	assert.Equal(t, "Please enter your 2FA code", pending.Message)

	_, err = svc.Authenticate(ctx, pending.TempToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyTwoFactor(ctx, pending.TempToken, "abcdef")
	assert.ErrorIs(t, err, ErrInvalidCode)

	code, err = TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	done, err := svc.VerifyTwoFactor(ctx, pending.TempToken, code)
	require.NoError(t, err)
	assert.NotEmpty(t, done.AccessToken)
	assert.True(t, done.User.Is2FAEnabled)

	_, err = svc.VerifyTwoFactor(ctx, done.AccessToken, code)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
