package v1

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/authz"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/validation"
)

// ProjectHandlers handles project endpoints, always nested under an
// organization. Authorization is resolved against the parent organization.
type ProjectHandlers struct {
	projectRepo *repositories.ProjectRepository
	resolver    *authz.Resolver
}

// NewProjectHandlers creates a new ProjectHandlers instance
func NewProjectHandlers(projectRepo *repositories.ProjectRepository, resolver *authz.Resolver) *ProjectHandlers {
	return &ProjectHandlers{projectRepo: projectRepo, resolver: resolver}
}

// authorize checks the caller's role in the parent organization. Writes the
// error response itself when the check fails.
func (h *ProjectHandlers) authorize(c *gin.Context, orgID string, action authz.Action) bool {
	allowed, found, err := h.resolver.Allow(
		c.Request.Context(),
		orgID,
		c.GetString("user_id"),
		c.GetBool("is_staff"),
		action,
	)
	if err != nil {
		slog.Error("Failed to resolve organization role",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
		return false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role for this operation"})
		return false
	}
	return true
}

// @Summary      List projects
// @Description  Returns the organization's projects, newest first. No authentication required.
// @Tags         Projects
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/projects [get]
// ListProjectsHandler lists an organization's projects
// GET /api/v1/organizations/:id/projects
func (h *ProjectHandlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionProjectList) {
			return
		}

		projects, err := h.projectRepo.ListByOrganization(c.Request.Context(), orgID)
		if err != nil {
			slog.Error("Failed to list projects", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"projects": projects})
	}
}

type projectRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary      Create project
// @Description  Creates a project in the organization. Owner only.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/projects [post]
// CreateProjectHandler creates a project
// POST /api/v1/organizations/:id/projects
func (h *ProjectHandlers) CreateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionProjectCreate) {
			return
		}

		var req projectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if err := validation.ValidateDisplayName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "name"})
			return
		}

		project := &models.Project{
			Name:           req.Name,
			OrganizationID: orgID,
		}
		if err := h.projectRepo.Create(c.Request.Context(), project); err != nil {
			slog.Error("Failed to create project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
			return
		}

		c.JSON(http.StatusCreated, project)
	}
}

// @Summary      Get project
// @Description  Returns a single project. The lookup is scoped to the organization in the URL, so a project is a 404 under any other organization. No authentication required.
// @Tags         Projects
// @Produce      json
// @Param        id          path  string  true  "Organization ID"
// @Param        project_id  path  string  true  "Project ID"
// @Success      200  {object}  models.Project
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/projects/{project_id} [get]
// GetProjectHandler retrieves a project
// GET /api/v1/organizations/:id/projects/:project_id
func (h *ProjectHandlers) GetProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionProjectView) {
			return
		}

		project, err := h.projectRepo.GetByID(c.Request.Context(), orgID, c.Param("project_id"))
		if err != nil {
			slog.Error("Failed to get project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
			return
		}
		if project == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

// @Summary      Update project
// @Description  Renames a project. Open to any authenticated caller.
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id          path  string  true  "Organization ID"
// @Param        project_id  path  string  true  "Project ID"
// @Success      200  {object}  models.Project
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/projects/{project_id} [patch]
// UpdateProjectHandler updates a project
// PATCH /api/v1/organizations/:id/projects/:project_id
func (h *ProjectHandlers) UpdateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionProjectUpdate) {
			return
		}

		var req projectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if err := validation.ValidateDisplayName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "name"})
			return
		}

		project, err := h.projectRepo.GetByID(c.Request.Context(), orgID, c.Param("project_id"))
		if err != nil {
			slog.Error("Failed to get project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}
		if project == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		project.Name = req.Name
		if err := h.projectRepo.Update(c.Request.Context(), project); err != nil {
			slog.Error("Failed to update project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

// @Summary      Delete project
// @Description  Deletes a project. Open to any authenticated caller.
// @Tags         Projects
// @Produce      json
// @Param        id          path  string  true  "Organization ID"
// @Param        project_id  path  string  true  "Project ID"
// @Success      204
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/projects/{project_id} [delete]
// DeleteProjectHandler deletes a project
// DELETE /api/v1/organizations/:id/projects/:project_id
func (h *ProjectHandlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionProjectDelete) {
			return
		}

		project, err := h.projectRepo.GetByID(c.Request.Context(), orgID, c.Param("project_id"))
		if err != nil {
			slog.Error("Failed to get project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
			return
		}
		if project == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		if err := h.projectRepo.Delete(c.Request.Context(), orgID, project.ID); err != nil {
			slog.Error("Failed to delete project", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
