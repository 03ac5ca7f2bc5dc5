package auth

import (
	"github.com/letscience-intel-server/internal/domain"
)

// Error is an authentication failure with a user-facing message. It unwraps
// to the domain sentinel that decides the HTTP status.
type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

var (
	ErrInvalidCredentials = &Error{domain.ErrUnauthorized, "Invalid credentials"}
	ErrAccountDisabled    = &Error{domain.ErrForbidden, "Account disabled"}
	ErrUsernameTaken      = &Error{domain.ErrConflict, "Username already exists"}
	ErrEmailTaken         = &Error{domain.ErrConflict, "Email already exists"}
	ErrInvalidToken       = &Error{domain.ErrUnauthorized, "Invalid or expired token"}
	ErrInvalidCode        = &Error{domain.ErrUnauthorized, "Invalid 2FA code"}
	ErrTwoFactorNotSetup  = &Error{domain.ErrInvalidInput, "Please setup 2FA first"}
	ErrRegistrationClosed = &Error{domain.ErrForbidden, "Registration is disabled"}
	ErrNotAuthenticated   = &Error{domain.ErrUnauthorized, "Not authenticated"}
)
