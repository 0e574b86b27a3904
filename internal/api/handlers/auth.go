package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robcowart/udnm/internal/api/middleware"
	"github.com/robcowart/udnm/internal/service"
	"go.uber.org/zap"
)

// AuthService authenticates operators
type AuthService interface {
	AuthenticateUser(username, password string) (string, error)
}

// AuthHandler handles authentication operations
type AuthHandler struct {
	userService AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges operator credentials for a token
// @Summary Operator login
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log := h.logger.With(zap.String("username", req.Username))
	token, err := h.userService.AuthenticateUser(req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		log.Warn("Rejected login", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case err != nil:
		log.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
	default:
		log.Info("Operator logged in")
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// GetCurrentUser echoes the claims of the calling operator's token
// @Summary Current operator
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}
