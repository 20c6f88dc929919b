// Package v1 implements the HTTP handlers for the /api/v1 surface: token and
// cookie authentication, users, organizations, projects, and file records.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/audit"
	"github.com/orbit-cloud/orbit-backend/internal/auth"
	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/middleware"
	"github.com/orbit-cloud/orbit-backend/internal/telemetry"
)

// RefreshTokenCookie is the cookie browser sessions carry the refresh token in
const RefreshTokenCookie = "refresh_token"

// AuthHandlers handles token issuance for both API clients (bearer token pair)
// and browsers (httpOnly cookies).
type AuthHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	audit    *audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers instance. recorder may be nil
// when auditing is disabled.
func NewAuthHandlers(cfg *config.Config, userRepo *repositories.UserRepository, recorder *audit.Recorder) *AuthHandlers {
	return &AuthHandlers{cfg: cfg, userRepo: userRepo, audit: recorder}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// loginUser resolves and verifies credentials, recording the attempt outcome
func (h *AuthHandlers) loginUser(c *gin.Context, username, password string) (userID string, ok bool) {
	user, err := h.userRepo.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		telemetry.LoginAttemptsTotal.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return "", false
	}

	// Run the hash comparison even for unknown users so response timing does
	// not reveal whether the username exists.
	hash := "$2a$10$0000000000000000000000000000000000000000000000000000"
	active := false
	if user != nil {
		hash = user.PasswordHash
		active = user.IsActive
	}

	if !auth.CheckPassword(hash, password) || user == nil || !active {
		telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		h.audit.Record(&audit.LogEntry{
			Action:    audit.ActionLoginFailed,
			IPAddress: c.ClientIP(),
			Metadata:  map[string]interface{}{"username": username},
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return "", false
	}

	telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.audit.Record(&audit.LogEntry{
		Action:    audit.ActionLogin,
		ActorID:   user.ID,
		IPAddress: c.ClientIP(),
	})
	return user.ID, true
}

// issueTokenPair generates an access/refresh pair for the user
func (h *AuthHandlers) issueTokenPair(userID string) (access, refresh string, err error) {
	access, err = auth.GenerateAccessToken(userID, h.cfg.Auth.JWT.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = auth.GenerateRefreshToken(userID, h.cfg.Auth.JWT.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// setAuthCookies writes the token pair as httpOnly cookies. SameSite=Lax keeps
// the cookies off cross-site subrequests while allowing top-level navigation.
func (h *AuthHandlers) setAuthCookies(c *gin.Context, access, refresh string) {
	secure := h.cfg.Auth.JWT.CookieSecure
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, access, int(h.cfg.Auth.JWT.AccessTTL.Seconds()), "/", "", secure, true)
	if refresh != "" {
		c.SetCookie(RefreshTokenCookie, refresh, int(h.cfg.Auth.JWT.RefreshTTL.Seconds()), "/", "", secure, true)
	}
}

// @Summary      Obtain token pair
// @Description  Exchanges username and password for a JWT access/refresh token pair.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "access, refresh"
// @Failure      400  {object}  map[string]interface{}  "Malformed request"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/v1/auth/token [post]
// TokenHandler issues a bearer token pair
// POST /api/v1/auth/token
func (h *AuthHandlers) TokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		userID, ok := h.loginUser(c, req.Username, req.Password)
		if !ok {
			return
		}

		access, refresh, err := h.issueTokenPair(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access":  access,
			"refresh": refresh,
		})
	}
}

// @Summary      Refresh bearer tokens
// @Description  Exchanges a refresh token for a new access token. A missing token in the body is a 400; an invalid or expired one is a 401.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "access (and refresh when rotation is enabled)"
// @Failure      400  {object}  map[string]interface{}  "Missing refresh token"
// @Failure      401  {object}  map[string]interface{}  "Invalid refresh token"
// @Router       /api/v1/auth/token/refresh [post]
// TokenRefreshHandler refreshes a bearer token pair
// POST /api/v1/auth/token/refresh
func (h *AuthHandlers) TokenRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
			return
		}

		claims, err := auth.ValidateRefreshToken(req.Refresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}

		access, err := auth.GenerateAccessToken(claims.UserID, h.cfg.Auth.JWT.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}

		resp := gin.H{"access": access}
		if h.cfg.Auth.JWT.RotateRefreshTokens {
			refresh, err := auth.GenerateRefreshToken(claims.UserID, h.cfg.Auth.JWT.RefreshTTL)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
				return
			}
			resp["refresh"] = refresh
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary      Cookie login
// @Description  Exchanges username and password for httpOnly auth cookies. Intended for browser clients.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      400  {object}  map[string]interface{}  "Malformed request"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/v1/auth/login [post]
// LoginHandler performs a cookie-based login
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		userID, ok := h.loginUser(c, req.Username, req.Password)
		if !ok {
			return
		}

		access, refresh, err := h.issueTokenPair(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue tokens"})
			return
		}

		h.setAuthCookies(c, access, refresh)

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil || user == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user.Public()})
	}
}

// @Summary      Cookie refresh
// @Description  Renews the access cookie from the refresh cookie. A missing refresh cookie is a 401 — the browser session is simply not logged in.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "detail"
// @Failure      401  {object}  map[string]interface{}  "No session or invalid refresh token"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler refreshes the cookie session
// POST /api/v1/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		refresh, err := c.Cookie(RefreshTokenCookie)
		if err != nil || refresh == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}

		claims, err := auth.ValidateRefreshToken(refresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}

		access, err := auth.GenerateAccessToken(claims.UserID, h.cfg.Auth.JWT.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}

		newRefresh := ""
		if h.cfg.Auth.JWT.RotateRefreshTokens {
			newRefresh, err = auth.GenerateRefreshToken(claims.UserID, h.cfg.Auth.JWT.RefreshTTL)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
				return
			}
		}

		h.setAuthCookies(c, access, newRefresh)

		c.JSON(http.StatusOK, gin.H{"detail": "session refreshed"})
	}
}

// @Summary      Logout
// @Description  Clears the auth cookies. Tokens already issued remain valid until expiry; this only ends the browser session.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "detail"
// @Router       /api/v1/auth/logout [post]
// LogoutHandler clears the cookie session
// POST /api/v1/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		secure := h.cfg.Auth.JWT.CookieSecure
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", secure, true)
		c.SetCookie(RefreshTokenCookie, "", -1, "/", "", secure, true)

		c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
	}
}
