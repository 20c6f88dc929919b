// Package api wires together all HTTP routes for the Orbit backend.
//
// Route grouping philosophy:
//   - /api/v1/auth/ and user registration are unauthenticated by necessity and
//     sit behind a much stricter rate limit than the rest of the API, since
//     they are the credential-guessing surface.
//   - Read-only listing and project reads are open: optional auth resolves the
//     caller when a token is present but never rejects the request.
//   - Everything else under /api/v1/ requires a valid access token. Per-object
//     authorization (organization roles, staff/self checks) lives in the
//     handlers, not the router.
package api

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/orbit-cloud/orbit-backend/internal/audit"
	"github.com/orbit-cloud/orbit-backend/internal/authz"
	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/jobs"
	"github.com/orbit-cloud/orbit-backend/internal/middleware"
	"github.com/orbit-cloud/orbit-backend/internal/safego"
	"github.com/orbit-cloud/orbit-backend/internal/storage"

	v1 "github.com/orbit-cloud/orbit-backend/internal/api/v1"

	// Import storage backends to register them
	_ "github.com/orbit-cloud/orbit-backend/internal/storage/azure"
	_ "github.com/orbit-cloud/orbit-backend/internal/storage/gcs"
	_ "github.com/orbit-cloud/orbit-backend/internal/storage/local"
	_ "github.com/orbit-cloud/orbit-backend/internal/storage/s3"
)

// BackgroundServices holds resources that must be stopped during graceful
// shutdown. The caller (cmd/server) is responsible for calling Shutdown()
// when the process receives a termination signal.
type BackgroundServices struct {
	fileReaper   *jobs.OrphanedFileReaper
	rateLimiters []middleware.Limiter
	auditor      *audit.Recorder
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.fileReaper != nil {
		bg.fileReaper.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if err := bg.auditor.Close(); err != nil {
		slog.Warn("failed to close audit recorder", slog.String("error", err.Error()))
	}
	slog.Info("all background services stopped")
}

// newAuditRecorder builds the audit recorder from config. A disabled audit
// section yields a nil recorder, which drops all records.
func newAuditRecorder(cfg *config.Config) *audit.Recorder {
	if !cfg.Audit.Enabled {
		return nil
	}

	var headers map[string]string
	if cfg.Audit.Webhook.AuthHeader != "" && cfg.Audit.Webhook.AuthToken != "" {
		headers = map[string]string{cfg.Audit.Webhook.AuthHeader: cfg.Audit.Webhook.AuthToken}
	}

	shipper, err := audit.NewMultiShipper([]audit.ShipperConfig{
		{
			Enabled: cfg.Audit.File.Enabled,
			Type:    "file",
			File: &audit.FileConfig{
				Path:       cfg.Audit.File.Path,
				MaxSizeMB:  cfg.Audit.File.MaxSizeMB,
				MaxBackups: cfg.Audit.File.MaxBackups,
			},
		},
		{
			Enabled: cfg.Audit.Webhook.Enabled,
			Type:    "webhook",
			Webhook: &audit.WebhookConfig{
				URL:           cfg.Audit.Webhook.URL,
				Headers:       headers,
				Timeout:       cfg.Audit.Webhook.Timeout,
				BatchSize:     cfg.Audit.Webhook.BatchSize,
				FlushInterval: cfg.Audit.Webhook.FlushInterval,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize audit shippers: %v", err)
	}

	log.Printf("Audit recording enabled (file=%v, webhook=%v)", cfg.Audit.File.Enabled, cfg.Audit.Webhook.Enabled)
	return audit.NewRecorder(shipper)
}

// newLimiter builds a rate limiter for the given window configuration. When a
// Redis address is configured the limit is shared across replicas; otherwise
// each process counts on its own.
func newLimiter(cfg *config.Config, rlConfig middleware.RateLimitConfig) middleware.Limiter {
	if addr := cfg.Security.RateLimiting.RedisAddr; addr != "" {
		return middleware.NewRedisRateLimiter(rlConfig, addr, cfg.Security.RateLimiting.RedisPassword)
	}
	return middleware.NewRateLimiter(rlConfig)
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Make sure the profile images bucket exists before the first upload.
	// Failure is not fatal: presigning degrades softly and is visible in the
	// presigned_urls_total metric.
	if err := storageBackend.EnsureBucket(context.Background(), cfg.Storage.ProfileImagesBucket); err != nil {
		slog.Warn("Failed to ensure profile images bucket",
			slog.String("bucket", cfg.Storage.ProfileImagesBucket),
			slog.String("error", err.Error()),
		)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	fileRepo := repositories.NewFileRepository(db)

	resolver := authz.NewResolver(orgRepo)
	auditor := newAuditRecorder(cfg)

	// Initialize handlers
	authHandlers := v1.NewAuthHandlers(cfg, userRepo, auditor)
	userHandlers := v1.NewUserHandlers(cfg, userRepo, fileRepo, storageBackend, auditor)
	orgHandlers := v1.NewOrganizationHandlers(orgRepo, resolver, auditor)
	projectHandlers := v1.NewProjectHandlers(projectRepo, resolver)
	fileHandlers := v1.NewFileHandlers(cfg, fileRepo, storageBackend)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint
	router.GET("/ready", readinessHandler(db))

	// API version
	router.GET("/version", versionHandler())

	bg := &BackgroundServices{auditor: auditor}

	// Reap abandoned profile image records in the background
	bg.fileReaper = jobs.NewOrphanedFileReaper(fileRepo, cfg.Storage.ProfileImagesBucket, cfg.Storage.OrphanSweepInterval)
	safego.Go(func() { bg.fileReaper.Start(context.Background()) })

	// The auth surface gets a far stricter limit than the rest of the API.
	// Registration is included: it is the other unauthenticated write.
	var authLimit, apiLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		apiConfig := middleware.DefaultRateLimitConfig()
		if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
			apiConfig.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
		}
		if cfg.Security.RateLimiting.Burst > 0 {
			apiConfig.BurstSize = cfg.Security.RateLimiting.Burst
		}

		authLimiter := newLimiter(cfg, middleware.AuthRateLimitConfig())
		apiLimiter := newLimiter(cfg, apiConfig)
		bg.rateLimiters = append(bg.rateLimiters, authLimiter, apiLimiter)

		authLimit = middleware.RateLimitMiddleware(authLimiter, middleware.AuthRateLimitConfig())
		apiLimit = middleware.RateLimitMiddleware(apiLimiter, apiConfig)
	} else {
		passthrough := func(c *gin.Context) { c.Next() }
		authLimit, apiLimit = passthrough, passthrough
	}

	apiV1 := router.Group("/api/v1")

	// Authentication endpoints: no auth middleware, strict rate limit
	authGroup := apiV1.Group("/auth")
	authGroup.Use(authLimit)
	{
		authGroup.POST("/token", authHandlers.TokenHandler())
		authGroup.POST("/token/refresh", authHandlers.TokenRefreshHandler())
		authGroup.POST("/login", authHandlers.LoginHandler())
		authGroup.POST("/refresh", authHandlers.RefreshHandler())
		authGroup.POST("/logout", authHandlers.LogoutHandler())
	}

	// Open registration shares the auth surface's rate limit
	apiV1.POST("/users", authLimit, userHandlers.CreateUserHandler())

	// Open read endpoints: listings and project reads do not require a token.
	// Optional auth still resolves the caller when one is presented, so an
	// authenticated request carries its identity into the handlers.
	public := apiV1.Group("")
	public.Use(apiLimit)
	public.Use(middleware.OptionalAuthMiddleware(userRepo))
	{
		public.GET("/users", userHandlers.ListUsersHandler())
		public.GET("/organizations", orgHandlers.ListOrganizationsHandler())
		public.GET("/organizations/:id/projects", projectHandlers.ListProjectsHandler())
		public.GET("/organizations/:id/projects/:project_id", projectHandlers.GetProjectHandler())
	}

	// Everything else requires a valid access token
	protected := apiV1.Group("")
	protected.Use(apiLimit)
	protected.Use(middleware.AuthMiddleware(userRepo))
	{
		users := protected.Group("/users")
		{
			users.GET("/self", userHandlers.GetSelfHandler())
			users.PATCH("/self", userHandlers.UpdateSelfHandler())
			users.GET("/:id", userHandlers.GetUserHandler())
			users.PATCH("/:id", userHandlers.UpdateUserHandler())
			users.DELETE("/:id", userHandlers.DeleteUserHandler())
			users.POST("/:id/generate-upload-profile-image-presigned-url", userHandlers.GenerateProfileImageUploadURLHandler())
		}

		orgs := protected.Group("/organizations")
		{
			orgs.POST("", orgHandlers.CreateOrganizationHandler())
			orgs.GET("/:id", orgHandlers.GetOrganizationHandler())
			orgs.PATCH("/:id", orgHandlers.UpdateOrganizationHandler())
			orgs.DELETE("/:id", orgHandlers.DeleteOrganizationHandler())
			orgs.PUT("/:id/add-member", orgHandlers.AddMemberHandler())
			orgs.PUT("/:id/remove-member", orgHandlers.RemoveMemberHandler())

			orgs.POST("/:id/projects", projectHandlers.CreateProjectHandler())
			orgs.PATCH("/:id/projects/:project_id", projectHandlers.UpdateProjectHandler())
			orgs.DELETE("/:id/projects/:project_id", projectHandlers.DeleteProjectHandler())
		}

		files := protected.Group("/files")
		{
			files.GET("", fileHandlers.ListFilesHandler())
			files.POST("", fileHandlers.CreateFileHandler())
			files.GET("/:id", fileHandlers.GetFileHandler())
			files.PUT("/:id", fileHandlers.UpdateFileHandler())
			files.DELETE("/:id", fileHandlers.DeleteFileHandler())
			files.GET("/:id/get-download-presigned-url", fileHandlers.GetDownloadURLHandler())
		}
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service. The object
// store is not probed here: presigning is local computation, so there is no
// cheap request that would prove connectivity without creating state. Presign
// failures surface through the presigned_urls_total metric instead.
func readinessHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logRequest(c, latency, path, query)
	}
}

// logRequest logs a request as a structured slog record. Whether the record
// renders as JSON or text is decided by the global handler configured in
// telemetry.SetupLogger.
func logRequest(c *gin.Context, latency time.Duration, path, query string) {
	requestID := c.GetString(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", requestID),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
