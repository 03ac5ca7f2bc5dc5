package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/letscience-intel-server/internal/domain"
)

const userKey = "user"

// Authenticator resolves bearer tokens to users
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// BearerToken extracts the token of an "Authorization: Bearer" header. The
// websocket endpoint may pass it as the "token" query parameter instead.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c); token != "" {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid access token
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			Abort(c, http.StatusUnauthorized, domain.CodeAuthentication, "Not authenticated")
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := http.StatusUnauthorized
			code := domain.CodeAuthentication
			if errors.Is(err, domain.ErrForbidden) {
				status, code = http.StatusForbidden, domain.CodeForbidden
			} else if !errors.Is(err, domain.ErrUnauthorized) {
				status, code = http.StatusInternalServerError, domain.CodeInternalServer
			}
			c.Header("WWW-Authenticate", "Bearer")
			Abort(c, status, code, err.Error())
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin flag. It must
// run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin {
			Abort(c, http.StatusForbidden, domain.CodeForbidden, "Admin privileges required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user of the request
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}
