package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/service"
	"github.com/GTDGit/gtd_console/internal/utils"
)

type AuthHandler struct {
	authService *service.AuthService
	limiter     *middleware.FailedLoginLimiter
}

func NewAuthHandler(authService *service.AuthService, limiter *middleware.FailedLoginLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter}
}

func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	if h.limiter != nil && h.limiter.Blocked(ip) {
		utils.Error(c, 429, "TOO_MANY_ATTEMPTS", "Too many failed login attempts, try again later")
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) && h.limiter != nil {
			h.limiter.Fail(ip)
		}
		if !errors.Is(err, utils.ErrInvalidCredentials) && !errors.Is(err, utils.ErrAccountInactive) {
			log.Error().Err(err).Str("email", req.Email).Msg("Login failed")
		}
		utils.ErrorFrom(c, err, "Failed to log in")
		return
	}
	if h.limiter != nil {
		h.limiter.Reset(ip)
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
	})
}
