// Package auth implements password login, JWT sessions and TOTP two-factor
// authentication for platform accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/letscience-intel-server/internal/domain"
)

// LoginResult is returned by Login and VerifyTwoFactor. When two-factor
// authentication is pending only RequiresTwoFactor, TempToken and Message
// are set.
type LoginResult struct {
	AccessToken       string           `json:"access_token,omitempty"`
	TokenType         string           `json:"token_type,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	User              *domain.UserView `json:"user,omitempty"`
	RequiresTwoFactor bool             `json:"requires_2fa,omitempty"`
	TempToken         string           `json:"temp_token,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// TwoFactorSetup carries a fresh TOTP secret for the authenticator app
type TwoFactorSetup struct {
	Secret  string `json:"secret"`
	QRURI   string `json:"qr_uri"`
	Message string `json:"message"`
}

// Service handles registration, login and two-factor flows
type Service struct {
	users  domain.UserStore
	tokens *TokenIssuer
	cfg    domain.AuthConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates an auth service from configuration
func NewService(users domain.UserStore, cfg domain.AuthConfig, logger *logrus.Logger) (*Service, error) {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.TOTPIssuer == "" {
		cfg.TOTPIssuer = "LetScience"
	}
	tokens, err := NewTokenIssuer(cfg.JWTSecret, cfg.TOTPIssuer, cfg.TokenTTL, cfg.MFATokenTTL)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Tokens returns the token issuer used by the service
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an active, non-admin account
func (s *Service) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	if !s.cfg.AllowRegister {
		return nil, ErrRegistrationClosed
	}
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, reg.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, reg.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, domain.ErrConflict) {
			if strings.Contains(err.Error(), "email") {
				return nil, ErrEmailTaken
			}
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")
	return user, nil
}

// Login checks a password. Accounts with two-factor authentication get a
// short-lived mfa token instead of an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.WithField("username", username).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if user.Is2FAEnabled {
		temp, _, err := s.tokens.Issue(user.ID, user.Username, PurposeMFA)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			RequiresTwoFactor: true,
			TempToken:         temp,
			Message:           "Please enter your 2FA code",
		}, nil
	}

	return s.completeLogin(ctx, user)
}

// VerifyTwoFactor finishes a two-factor login
func (s *Service) VerifyTwoFactor(ctx context.Context, tempToken, code string) (*LoginResult, error) {
	claims, err := s.tokens.Verify(tempToken, PurposeMFA)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if !ValidateTOTP(code, user.TOTPSecret, s.now()) {
		return nil, ErrInvalidCode
	}
	return s.completeLogin(ctx, user)
}

func (s *Service) completeLogin(ctx context.Context, user *domain.User) (*LoginResult, error) {
	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Username, PurposeAccess)
	if err != nil {
		return nil, err
	}
	view := user.View()

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User logged in")

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   &expires,
		User:        &view,
	}, nil
}

// Authenticate resolves an access token to an active user
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token, PurposeAccess)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// SetupTwoFactor stores a new TOTP secret for the user. Two-factor login
// stays off until EnableTwoFactor confirms a code.
func (s *Service) SetupTwoFactor(ctx context.Context, user *domain.User) (*TwoFactorSetup, error) {
	secret, uri, err := NewTOTPKey(s.cfg.TOTPIssuer, user.Username)
	if err != nil {
		return nil, err
	}
	user.TOTPSecret = secret
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("storing TOTP secret: %w", err)
	}
	return &TwoFactorSetup{
		Secret:  secret,
		QRURI:   uri,
		Message: "Scan this QR code with Google Authenticator",
	}, nil
}

// EnableTwoFactor turns on two-factor login after checking a code
func (s *Service) EnableTwoFactor(ctx context.Context, user *domain.User, code string) error {
	if user.TOTPSecret == "" {
		return ErrTwoFactorNotSetup
	}
	if !ValidateTOTP(code, user.TOTPSecret, s.now()) {
		return ErrInvalidCode
	}
	user.Is2FAEnabled = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("enabling 2FA: %w", err)
	}
	s.logger.WithField("user_id", user.ID).Info("Two-factor authentication enabled")
	return nil
}
