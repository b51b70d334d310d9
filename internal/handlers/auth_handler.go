package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"marketplace-service/internal/clients"
	"marketplace-service/internal/middleware"
	"marketplace-service/internal/models"
)

type AuthHandler struct {
	identity     *clients.IdentityClient
	adminEmails  map[string]struct{}
	logger       *logrus.Logger
	secureCookie bool
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

func NewAuthHandler(identity *clients.IdentityClient, adminEmails []string, environment string, logger *logrus.Logger) *AuthHandler {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &AuthHandler{
		identity:     identity,
		adminEmails:  allowed,
		logger:       logger,
		secureCookie: environment == "production",
	}
}

// Login signs an admin in with email/password
// @Summary Admin login
// @Description Exchange credentials for a session cookie. Only allowlisted admin emails may sign in.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, ok := h.adminEmails[email]; !ok {
		h.logger.WithField("email", email).Warn("login attempt by non-admin email")
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ACCESS_DENIED",
				Message: "Access denied. Admin access required.",
			},
		})
		return
	}

	session, err := h.identity.SignInWithPassword(c.Request.Context(), email, req.Password)
	if err != nil {
		h.logger.WithError(err).WithField("email", email).Warn("admin sign-in failed")
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_CREDENTIALS",
				Message: "Invalid email or password",
			},
		})
		return
	}

	maxAge := session.ExpiresIn
	if maxAge <= 0 {
		maxAge = 3600
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AdminTokenCookie, session.AccessToken, maxAge, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, LoginResponse{Success: true, Email: session.User.Email})
}

// Logout clears the admin session cookie
// @Summary Admin logout
// @Tags auth
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AdminTokenCookie, "", -1, "/", "", h.secureCookie, true)

	msg := "Logged out"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

// Me returns the authenticated admin's identity. Mounted behind AdminAuth.
// @Summary Current admin
// @Tags auth
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	email := c.GetString("admin_email")
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    gin.H{"email": email},
	})
}
