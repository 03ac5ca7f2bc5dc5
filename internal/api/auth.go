package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/letscience-intel-server/internal/domain"
	"github.com/letscience-intel-server/internal/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyRequest struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var reg domain.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		badRequest(c, "invalid registration body")
		return
	}
	user, err := s.deps.Auth.Register(c.Request.Context(), reg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.View())
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login body")
		return
	}
	result, err := s.deps.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleVerifyTwoFactor(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid verification body")
		return
	}
	result, err := s.deps.Auth.VerifyTwoFactor(c.Request.Context(), req.TempToken, req.Code)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMe(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, user.View())
}

func (s *Server) handleSetupTwoFactor(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	setup, err := s.deps.Auth.SetupTwoFactor(c.Request.Context(), user)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// handleEnableTwoFactor takes the confirmation code as the "code" query
// parameter, or as a JSON body for clients that prefer one.
func (s *Server) handleEnableTwoFactor(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		var body struct {
			Code string `json:"code"`
		}
		_ = c.ShouldBindJSON(&body)
		code = body.Code
	}
	if code == "" {
		s.respondError(c, domain.NewValidationError("code", "is required", code))
		return
	}

	user, _ := middleware.CurrentUser(c)
	if err := s.deps.Auth.EnableTwoFactor(c.Request.Context(), user, code); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "2FA enabled successfully"})
}
