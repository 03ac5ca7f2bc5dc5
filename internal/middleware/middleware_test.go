package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letscience-intel-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeAuth map[string]*domain.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	switch token {
	case "disabled":
		return nil, fmt.Errorf("account: %w", domain.ErrForbidden)
	case "broken":
		return nil, fmt.Errorf("database down")
	}
	if user, ok := f[token]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("bad token: %w", domain.ErrUnauthorized)
}

func perform(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var body domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSecurityHeadersAndCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID(), SecurityHeaders())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CorrelationIDKey)) })

	w := perform(router, http.MethodGet, "/x", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	id := w.Header().Get("X-Correlation-ID")
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	w = perform(router, http.MethodGet, "/x", http.Header{"X-Correlation-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-ID"))
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(router, http.MethodOptions, "/x", http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(router, http.MethodGet, "/x", http.Header{"Origin": {"https://evil.example"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(20 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	w := perform(router, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID(), Recovery(testLogger()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(router, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, domain.CodeInternalServer, body.Code)
	assert.Equal(t, w.Header().Get("X-Correlation-ID"), body.RequestID)
}

func TestRequireAuth(t *testing.T) {
	auth := fakeAuth{
		"alice": {ID: 1, Username: "alice"},
		"root":  {ID: 2, Username: "root", IsAdmin: true},
	}
	router := gin.New()
	router.Use(AuditLogger(testLogger()))
	router.GET("/me", RequireAuth(auth), func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Username)
	})
	router.GET("/admin", RequireAuth(auth), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/optional", OptionalAuth(auth), func(c *gin.Context) {
		_, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	tests := []struct {
		name   string
		path   string
		header http.Header
		status int
		code   string
	}{
		{"missing token", "/me", nil, http.StatusUnauthorized, domain.CodeAuthentication},
		{"invalid token", "/me", http.Header{"Authorization": {"Bearer nope"}}, http.StatusUnauthorized, domain.CodeAuthentication},
		{"disabled account", "/me", http.Header{"Authorization": {"Bearer disabled"}}, http.StatusForbidden, domain.CodeForbidden},
		{"store failure", "/me", http.Header{"Authorization": {"Bearer broken"}}, http.StatusInternalServerError, domain.CodeInternalServer},
		{"valid token", "/me", http.Header{"Authorization": {"bearer alice"}}, http.StatusOK, ""},
		{"query token", "/me?token=alice", nil, http.StatusOK, ""},
		{"non admin", "/admin", http.Header{"Authorization": {"Bearer alice"}}, http.StatusForbidden, domain.CodeForbidden},
		{"admin", "/admin", http.Header{"Authorization": {"Bearer root"}}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, tt.path, tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			}
		})
	}

	w := perform(router, http.MethodGet, "/optional", nil)
	assert.JSONEq(t, `{"authenticated": false}`, w.Body.String())
	w = perform(router, http.MethodGet, "/optional", http.Header{"Authorization": {"Bearer nope"}})
	assert.JSONEq(t, `{"authenticated": false}`, w.Body.String())
	w = perform(router, http.MethodGet, "/optional", http.Header{"Authorization": {"Bearer alice"}})
	assert.JSONEq(t, `{"authenticated": true}`, w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"), "burst exhausted")
	assert.True(t, limiter.Allow("b"), "buckets are per client")

	router := gin.New()
	router.Use(NewRateLimiter(1, 1).Middleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/x", nil).Code)
	w := perform(router, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, domain.CodeRateLimit, decodeError(t, w).Code)
}
