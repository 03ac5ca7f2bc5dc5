package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/letscience-intel-server/internal/auth"
	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/middleware"
)

// respondError maps service errors to a status and a standard error body.
// Unexpected errors are logged and hidden behind a generic message.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		authErr    *auth.Error
	)

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
			domain.CodeValidation, validation.Error(), validation.Field, c.GetString(middleware.CorrelationIDKey)))
		return
	case errors.As(err, &authErr):
		middleware.Abort(c, statusOf(authErr), codeOf(authErr), authErr.Error())
		return
	}

	status, code := statusOf(err), codeOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(middleware.CorrelationIDKey),
			"path":           c.FullPath(),
		}).WithError(err).Error("Request failed")
		message = "Internal server error"
	}
	middleware.Abort(c, status, code, message)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.CodeInvalidInput
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.CodeAuthentication
	case errors.Is(err, domain.ErrForbidden):
		return domain.CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return domain.CodeNotFound
	case errors.Is(err, domain.ErrConflict):
		return domain.CodeConflict
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return domain.CodeExternalAPI
	}
	return domain.CodeInternalServer
}

// badRequest rejects malformed request bodies
func badRequest(c *gin.Context, message string) {
	middleware.Abort(c, http.StatusBadRequest, domain.CodeInvalidInput, message)
}

// pathID parses the :id parameter
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter
func queryInt(c *gin.Context, name string, def, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, name+" must be a non-negative integer")
		return 0, false
	}
	if max > 0 && v > max {
		v = max
	}
	return v, true
}
