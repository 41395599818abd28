package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// AuthHandler handles authentication operations for both admins and
// participants
type AuthHandler struct {
	userService        *service.UserService
	participantService *service.ParticipantService
	logger             *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *service.UserService, participantService *service.ParticipantService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService:        userService,
		participantService: participantService,
		logger:             logger,
	}
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin user
// @Summary Admin login
// @Description Authenticate an admin and return a JWT token
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.userService.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Admin login failed", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.logger.Info("Admin logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}

// ParticipantLoginRequest represents a participant login request. The code
// acts as the participant's password.
type ParticipantLoginRequest struct {
	DNI  string `json:"dni" binding:"required"`
	Code string `json:"code" binding:"required"`
}

// ParticipantLogin authenticates a participant with the DNI + code pair
// @Summary Participant login
// @Description Authenticate a participant and return a JWT token
// @Accept json
// @Produce json
// @Param request body ParticipantLoginRequest true "Participant credentials"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/participant/login [post]
func (h *AuthHandler) ParticipantLogin(c *gin.Context) {
	var req ParticipantLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.participantService.AuthenticateParticipant(req.DNI, req.Code)
	if err != nil {
		h.logger.Warn("Participant login failed", zap.String("dni", req.DNI))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.logger.Info("Participant logged in", zap.String("dni", req.DNI))

	c.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}
