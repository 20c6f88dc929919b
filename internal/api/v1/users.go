package v1

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/audit"
	"github.com/orbit-cloud/orbit-backend/internal/auth"
	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/middleware"
	"github.com/orbit-cloud/orbit-backend/internal/storage"
	"github.com/orbit-cloud/orbit-backend/internal/telemetry"
	"github.com/orbit-cloud/orbit-backend/internal/validation"
)

// UserHandlers handles user account endpoints
type UserHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	fileRepo *repositories.FileRepository
	store    storage.Storage
	audit    *audit.Recorder
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(cfg *config.Config, userRepo *repositories.UserRepository, fileRepo *repositories.FileRepository, store storage.Storage, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{cfg: cfg, userRepo: userRepo, fileRepo: fileRepo, store: store, audit: recorder}
}

// pagination extracts and clamps page/per_page query parameters
func pagination(c *gin.Context) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage, (page - 1) * perPage
}

// canActOn reports whether the authenticated user may operate on the target
// account: staff may act on anyone, everyone else only on themselves.
func canActOn(c *gin.Context, targetID string) bool {
	if c.GetBool("is_staff") {
		return true
	}
	return c.GetString("user_id") == targetID
}

// boolQuery parses an optional "true"/"false" query parameter into a *bool
func boolQuery(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// @Summary      List users
// @Description  Returns a paginated list of user accounts. No authentication required.
// @Tags         Users
// @Produce      json
// @Param        page       query  int     false  "Page number"
// @Param        per_page   query  int     false  "Items per page (max 100)"
// @Param        is_active  query  bool    false  "Filter by active flag"
// @Param        is_staff   query  bool    false  "Filter by staff flag"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/users [get]
// ListUsersHandler lists user accounts
// GET /api/v1/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := pagination(c)
		filter := repositories.UserListFilter{
			IsActive: boolQuery(c, "is_active"),
			IsStaff:  boolQuery(c, "is_staff"),
		}

		users, total, err := h.userRepo.ListUsers(c.Request.Context(), filter, perPage, offset)
		if err != nil {
			slog.Error("Failed to list users", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}

		public := make([]models.PublicUser, 0, len(users))
		for _, u := range users {
			public = append(public, u.Public())
		}

		c.JSON(http.StatusOK, gin.H{
			"users": public,
			"meta": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

type createUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// @Summary      Register user
// @Description  Creates a new account. Open registration; no authentication required. Usernames are unique, email addresses are not.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.PublicUser
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/v1/users [post]
// CreateUserHandler registers a new user account
// POST /api/v1/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username, email, and a password of at least 8 characters are required"})
			return
		}

		if err := validation.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "username"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("Failed to hash password", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsActive:     true,
		}

		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrDuplicateUsername) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "A user with that username already exists",
					"field": "username",
				})
				return
			}
			slog.Error("Failed to create user", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		h.audit.Record(&audit.LogEntry{
			Action:       audit.ActionUserCreated,
			ActorID:      user.ID,
			ResourceType: "user",
			ResourceID:   user.ID,
			IPAddress:    c.ClientIP(),
		})

		c.JSON(http.StatusCreated, user.Public())
	}
}

// @Summary      Get user
// @Description  Returns a single user account. Staff may fetch anyone; other callers only themselves.
// @Tags         Users
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  models.PublicUser
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/users/{id} [get]
// GetUserHandler retrieves a user account
// GET /api/v1/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.getUser(c, c.Param("id"))
	}
}

// GetSelfHandler retrieves the authenticated user's own account
// GET /api/v1/users/self
func (h *UserHandlers) GetSelfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.getUser(c, c.GetString("user_id"))
	}
}

func (h *UserHandlers) getUser(c *gin.Context, userID string) {
	if !canActOn(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to view this user"})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to get user", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
	// Staff-only flags; ignored for non-staff callers
	IsActive *bool `json:"is_active"`
	IsStaff  *bool `json:"is_staff"`
}

// @Summary      Update user
// @Description  Partially updates a user account. Staff may update anyone and toggle the active and staff flags; other callers only their own profile fields.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  models.PublicUser
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/users/{id} [patch]
// UpdateUserHandler updates a user account
// PATCH /api/v1/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.updateUser(c, c.Param("id"))
	}
}

// UpdateSelfHandler updates the authenticated user's own account
// PATCH /api/v1/users/self
func (h *UserHandlers) UpdateSelfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.updateUser(c, c.GetString("user_id"))
	}
}

func (h *UserHandlers) updateUser(c *gin.Context, userID string) {
	if !canActOn(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to update this user"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Failed to get user", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			slog.Error("Failed to hash password", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		user.PasswordHash = hash
	}
	if c.GetBool("is_staff") {
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.IsStaff != nil {
			user.IsStaff = *req.IsStaff
		}
	}

	if err := h.userRepo.UpdateUser(c.Request.Context(), user); err != nil {
		slog.Error("Failed to update user", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// @Summary      Delete user
// @Description  Deletes a user account. Staff may delete anyone; other callers only themselves.
// @Tags         Users
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      204
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/users/{id} [delete]
// DeleteUserHandler deletes a user account
// DELETE /api/v1/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		if !canActOn(c, userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to delete this user"})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to get user", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if err := h.userRepo.DeleteUser(c.Request.Context(), userID); err != nil {
			slog.Error("Failed to delete user", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}

		h.audit.Record(&audit.LogEntry{
			Action:       audit.ActionUserDeleted,
			ActorID:      c.GetString("user_id"),
			ResourceType: "user",
			ResourceID:   userID,
			IPAddress:    c.ClientIP(),
		})

		c.Status(http.StatusNoContent)
	}
}

type profileImageRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// contentTypeFor guesses a Content-Type from the filename extension
func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// @Summary      Presign profile image upload
// @Description  Registers a profile image file record and returns a presigned upload URL for it. When the object store cannot issue a URL the endpoint still succeeds with a null upload_url; the file record is kept so the upload can be retried.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "file, upload_url"
// @Failure      400  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/v1/users/{id}/generate-upload-profile-image-presigned-url [post]
// GenerateProfileImageUploadURLHandler issues a presigned upload URL for a
// user's profile image
// POST /api/v1/users/:id/generate-upload-profile-image-presigned-url
func (h *UserHandlers) GenerateProfileImageUploadURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		if !canActOn(c, userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to update this user"})
			return
		}

		user := middleware.CurrentUser(c)
		if c.GetBool("is_staff") && c.GetString("user_id") != userID {
			var err error
			user, err = h.userRepo.GetUserByID(c.Request.Context(), userID)
			if err != nil {
				slog.Error("Failed to get user", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
				return
			}
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		var req profileImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
			return
		}
		if err := validation.ValidateFilename(req.Filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "filename"})
			return
		}

		file := &models.File{
			Filename: req.Filename,
			Filetype: models.FileTypeImage,
			Bucket:   h.cfg.Storage.ProfileImagesBucket,
			Location: fmt.Sprintf("%s/%s", user.ID, req.Filename),
		}
		if err := h.fileRepo.Create(c.Request.Context(), file); err != nil {
			slog.Error("Failed to create file record", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register file"})
			return
		}

		// The stored profile image URL points at the download-presign endpoint
		// rather than a signed URL, which would expire.
		profileURL := fmt.Sprintf("/api/v1/files/%s/get-download-presigned-url", file.ID)
		if err := h.userRepo.SetProfileImageURL(c.Request.Context(), user.ID, profileURL); err != nil {
			slog.Error("Failed to set profile image URL", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		uploadURL, err := h.store.PresignUpload(
			c.Request.Context(),
			file.Bucket,
			file.Location,
			contentTypeFor(file.Filename),
			h.cfg.Storage.UploadURLTTL,
		)
		if err != nil {
			// Soft failure: the file record exists, the client just cannot
			// upload right now. Surfaced through metrics rather than a 5xx.
			telemetry.PresignedURLsTotal.WithLabelValues("upload", "error").Inc()
			slog.Warn("Failed to presign upload URL",
				slog.String("file_id", file.ID),
				slog.String("bucket", file.Bucket),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusOK, gin.H{"file": file, "upload_url": nil})
			return
		}

		telemetry.PresignedURLsTotal.WithLabelValues("upload", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"file": file, "upload_url": uploadURL})
	}
}
