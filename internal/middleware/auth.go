package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"marketplace-service/internal/clients"
	"marketplace-service/internal/models"
)

// AdminTokenCookie is the session cookie set by the admin login flow.
const AdminTokenCookie = "admin_token"

// AdminAuth validates the bearer token (or admin_token cookie) against the
// identity provider and checks the resulting email against the allowlist.
// On success the admin's email is stored in the context under "admin_email".
func AdminAuth(identity *clients.IdentityClient, adminEmails []string, logger *logrus.Logger) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}

	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthorized(c, "AUTH_REQUIRED", "Authentication required. Please log in again.")
			return
		}

		user, err := identity.GetUser(c.Request.Context(), token)
		if err != nil {
			logger.WithError(err).Warn("admin token rejected")
			unauthorized(c, "AUTH_REQUIRED", "Authentication required. Please log in again.")
			return
		}

		email := strings.ToLower(strings.TrimSpace(user.Email))
		if _, ok := allowed[email]; !ok {
			logger.WithField("email", email).Warn("non-admin user attempted admin access")
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "ACCESS_DENIED",
					Message: "Access denied. Admin access required.",
				},
			})
			c.Abort()
			return
		}

		c.Set("admin_email", email)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AdminTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func unauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
	c.Abort()
}
