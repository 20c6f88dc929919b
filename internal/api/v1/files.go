package v1

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/storage"
	"github.com/orbit-cloud/orbit-backend/internal/telemetry"
	"github.com/orbit-cloud/orbit-backend/internal/validation"
)

// FileHandlers handles file metadata endpoints. File records describe objects
// living in a bucket; the API never proxies object bytes, it only hands out
// presigned URLs.
type FileHandlers struct {
	cfg      *config.Config
	fileRepo *repositories.FileRepository
	store    storage.Storage
}

// NewFileHandlers creates a new FileHandlers instance
func NewFileHandlers(cfg *config.Config, fileRepo *repositories.FileRepository, store storage.Storage) *FileHandlers {
	return &FileHandlers{cfg: cfg, fileRepo: fileRepo, store: store}
}

// @Summary      List files
// @Description  Returns a paginated list of file records.
// @Tags         Files
// @Produce      json
// @Param        page      query  int  false  "Page number"
// @Param        per_page  query  int  false  "Items per page (max 100)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/files [get]
// ListFilesHandler lists file records
// GET /api/v1/files
func (h *FileHandlers) ListFilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := pagination(c)

		files, err := h.fileRepo.List(c.Request.Context(), perPage, offset)
		if err != nil {
			slog.Error("Failed to list files", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
			return
		}

		total, err := h.fileRepo.Count(c.Request.Context())
		if err != nil {
			slog.Error("Failed to count files", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"files": files,
			"meta": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

type fileRequest struct {
	Filename string          `json:"filename" binding:"required"`
	Filetype models.FileType `json:"filetype" binding:"required"`
	Bucket   string          `json:"bucket" binding:"required"`
	Location string          `json:"location" binding:"required"`
}

// @Summary      Create file record
// @Description  Registers metadata for an object. The ID is generated server-side and is immutable. Filetype must be IMAGE or VIDEO.
// @Tags         Files
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.File
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/v1/files [post]
// CreateFileHandler registers a file record
// POST /api/v1/files
func (h *FileHandlers) CreateFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filename, filetype, bucket, and location are required"})
			return
		}
		if !req.Filetype.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filetype must be IMAGE or VIDEO"})
			return
		}
		if err := validation.ValidateFilename(req.Filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "filename"})
			return
		}

		file := &models.File{
			Filename: req.Filename,
			Filetype: req.Filetype,
			Bucket:   req.Bucket,
			Location: req.Location,
		}
		if err := h.fileRepo.Create(c.Request.Context(), file); err != nil {
			slog.Error("Failed to create file record", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create file"})
			return
		}

		c.JSON(http.StatusCreated, file)
	}
}

// @Summary      Get file record
// @Tags         Files
// @Produce      json
// @Param        id  path  string  true  "File ID"
// @Success      200  {object}  models.File
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/files/{id} [get]
// GetFileHandler retrieves a file record
// GET /api/v1/files/:id
func (h *FileHandlers) GetFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.fileRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			slog.Error("Failed to get file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get file"})
			return
		}
		if file == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		c.JSON(http.StatusOK, file)
	}
}

// @Summary      Update file record
// @Description  Rewrites a file record's metadata. The ID cannot change.
// @Tags         Files
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "File ID"
// @Success      200  {object}  models.File
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/files/{id} [put]
// UpdateFileHandler updates a file record
// PUT /api/v1/files/:id
func (h *FileHandlers) UpdateFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.fileRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			slog.Error("Failed to get file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update file"})
			return
		}
		if file == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		var req fileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filename, filetype, bucket, and location are required"})
			return
		}
		if !req.Filetype.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filetype must be IMAGE or VIDEO"})
			return
		}
		if err := validation.ValidateFilename(req.Filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "filename"})
			return
		}

		file.Filename = req.Filename
		file.Filetype = req.Filetype
		file.Bucket = req.Bucket
		file.Location = req.Location
		if err := h.fileRepo.Update(c.Request.Context(), file); err != nil {
			slog.Error("Failed to update file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update file"})
			return
		}

		c.JSON(http.StatusOK, file)
	}
}

// @Summary      Delete file record
// @Description  Deletes the metadata record only. The stored object is untouched.
// @Tags         Files
// @Produce      json
// @Param        id  path  string  true  "File ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/files/{id} [delete]
// DeleteFileHandler deletes a file record
// DELETE /api/v1/files/:id
func (h *FileHandlers) DeleteFileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.fileRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			slog.Error("Failed to get file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file"})
			return
		}
		if file == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		if err := h.fileRepo.Delete(c.Request.Context(), file.ID); err != nil {
			slog.Error("Failed to delete file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary      Presign download
// @Description  Returns a presigned download URL for the file's object. When the object store cannot issue a URL the endpoint still succeeds with a null download_url.
// @Tags         Files
// @Produce      json
// @Param        id  path  string  true  "File ID"
// @Success      200  {object}  map[string]interface{}  "file, download_url"
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/files/{id}/get-download-presigned-url [get]
// GetDownloadURLHandler issues a presigned download URL for a file's object
// GET /api/v1/files/:id/get-download-presigned-url
func (h *FileHandlers) GetDownloadURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.fileRepo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			slog.Error("Failed to get file", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get file"})
			return
		}
		if file == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}

		url, err := h.store.PresignDownload(
			c.Request.Context(),
			file.Bucket,
			file.Location,
			h.cfg.Storage.DownloadURLTTL,
		)
		if err != nil {
			telemetry.PresignedURLsTotal.WithLabelValues("download", "error").Inc()
			slog.Warn("Failed to presign download URL",
				slog.String("file_id", file.ID),
				slog.String("bucket", file.Bucket),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusOK, gin.H{"file": file, "download_url": nil})
			return
		}

		telemetry.PresignedURLsTotal.WithLabelValues("download", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"file": file, "download_url": url})
	}
}
