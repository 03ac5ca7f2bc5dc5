package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User is a platform account
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	TOTPSecret   string     `json:"-"`
	Is2FAEnabled bool       `json:"is_2fa_enabled"`
	IsActive     bool       `json:"is_active"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserView is the public projection of a user returned by the API
type UserView struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"is_admin"`
	Is2FAEnabled bool   `json:"is_2fa_enabled"`
}

// View returns the public projection of the user
func (u *User) View() UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		IsAdmin:      u.IsAdmin,
		Is2FAEnabled: u.Is2FAEnabled,
	}
}

// Registration is a sign-up request
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks registration fields
func (r *Registration) Validate() error {
	if l := len(strings.TrimSpace(r.Username)); l < 3 || l > 64 {
		return NewValidationError("username", "must be between 3 and 64 characters", r.Username)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return NewValidationError("email", "is not a valid address", r.Email)
	}
	if len(r.Password) < 8 {
		return NewValidationError("password", "must be at least 8 characters", len(r.Password))
	}
	return nil
}
