// Package middleware provides Gin HTTP middleware for authentication,
// rate limiting, security headers, request IDs, and metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates the user identity that handlers and authorization read from.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/auth"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
)

// AccessTokenCookie is the cookie browser sessions carry the access token in.
// Bearer headers take precedence when both are present.
const AccessTokenCookie = "access_token"

// extractToken pulls an access token from the Authorization header or, failing
// that, the session cookie. Returns "" when neither carries a token.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

// AuthMiddleware validates the request's access token and loads the user into
// the Gin context. Requests without a valid token are rejected with 401.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing credentials",
			})
			return
		}

		claims, err := auth.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}

		if user == nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found or inactive",
			})
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("is_staff", user.IsStaff)

		c.Next()
	}
}

// OptionalAuthMiddleware - same as AuthMiddleware but doesn't abort when the
// request carries no credentials or invalid ones.
func OptionalAuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := auth.ValidateAccessToken(token)
		if err != nil {
			c.Next()
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err == nil && user != nil && user.IsActive {
			c.Set("user", user)
			c.Set("user_id", user.ID)
			c.Set("is_staff", user.IsStaff)
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user from the Gin context, or nil when
// the request was not authenticated.
func CurrentUser(c *gin.Context) *models.User {
	if v, exists := c.Get("user"); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
