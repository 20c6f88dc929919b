package v1

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbit-cloud/orbit-backend/internal/audit"
	"github.com/orbit-cloud/orbit-backend/internal/authz"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
	"github.com/orbit-cloud/orbit-backend/internal/db/repositories"
	"github.com/orbit-cloud/orbit-backend/internal/validation"
)

// OrganizationHandlers handles organization CRUD and membership endpoints
type OrganizationHandlers struct {
	orgRepo  *repositories.OrganizationRepository
	resolver *authz.Resolver
	audit    *audit.Recorder
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance
func NewOrganizationHandlers(orgRepo *repositories.OrganizationRepository, resolver *authz.Resolver, recorder *audit.Recorder) *OrganizationHandlers {
	return &OrganizationHandlers{orgRepo: orgRepo, resolver: resolver, audit: recorder}
}

// authorize resolves whether the caller may perform action on the organization
// and writes the error response itself when not. A missing organization is a
// 404 for everyone, including staff, so organization IDs are not probeable.
func (h *OrganizationHandlers) authorize(c *gin.Context, orgID string, action authz.Action) bool {
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

// detail writes the organization with its admin and member sets
func (h *OrganizationHandlers) detail(c *gin.Context, orgID string, status int) {
	detail, err := h.orgRepo.GetDetail(c.Request.Context(), orgID)
	if err != nil {
		slog.Error("Failed to get organization", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get organization"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	c.JSON(status, detail)
}

// @Summary      List organizations
// @Description  Returns a paginated list of organizations, newest first. No authentication required.
// @Tags         Organizations
// @Produce      json
// @Param        page      query  int  false  "Page number"
// @Param        per_page  query  int  false  "Items per page (max 100)"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/organizations [get]
// ListOrganizationsHandler lists organizations
// GET /api/v1/organizations
func (h *OrganizationHandlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := pagination(c)

		orgs, err := h.orgRepo.List(c.Request.Context(), perPage, offset)
		if err != nil {
			slog.Error("Failed to list organizations", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list organizations"})
			return
		}

		total, err := h.orgRepo.Count(c.Request.Context())
		if err != nil {
			slog.Error("Failed to count organizations", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list organizations"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organizations": orgs,
			"meta": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

type createOrganizationRequest struct {
	Name    string   `json:"name" binding:"required"`
	Admins  []string `json:"admins"`
	Members []string `json:"members"`
}

// @Summary      Create organization
// @Description  Creates an organization owned by the caller, optionally seeding the admin and member sets.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.OrganizationDetail
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/v1/organizations [post]
// CreateOrganizationHandler creates an organization
// POST /api/v1/organizations
func (h *OrganizationHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if err := validation.ValidateDisplayName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "name"})
			return
		}

		org := &models.Organization{
			Name:    req.Name,
			OwnerID: c.GetString("user_id"),
		}
		if err := h.orgRepo.Create(c.Request.Context(), org); err != nil {
			slog.Error("Failed to create organization", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		if len(req.Admins) > 0 {
			if err := h.orgRepo.ReplaceAdmins(c.Request.Context(), org.ID, req.Admins); err != nil {
				slog.Error("Failed to set organization admins", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
				return
			}
		}
		if len(req.Members) > 0 {
			if err := h.orgRepo.AddMembers(c.Request.Context(), org.ID, req.Members); err != nil {
				slog.Error("Failed to set organization members", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
				return
			}
		}

		h.detail(c, org.ID, http.StatusCreated)
	}
}

// @Summary      Get organization
// @Description  Returns an organization with its admin and member ID sets. Any authenticated caller may view any organization.
// @Tags         Organizations
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  models.OrganizationDetail
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id} [get]
// GetOrganizationHandler retrieves an organization
// GET /api/v1/organizations/:id
func (h *OrganizationHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionOrgView) {
			return
		}
		h.detail(c, orgID, http.StatusOK)
	}
}

type updateOrganizationRequest struct {
	Name   *string  `json:"name"`
	Admins []string `json:"admins"`
}

// @Summary      Update organization
// @Description  Renames an organization and optionally replaces its admin set. Requires at least admin role. Ownership cannot be transferred.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  models.OrganizationDetail
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id} [patch]
// UpdateOrganizationHandler updates an organization
// PATCH /api/v1/organizations/:id
func (h *OrganizationHandlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionOrgUpdate) {
			return
		}

		var req updateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if req.Name != nil {
			if err := validation.ValidateDisplayName(*req.Name); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "name"})
				return
			}
			org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
			if err != nil || org == nil {
				slog.Error("Failed to get organization for update", slog.String("error", errString(err)))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
				return
			}
			org.Name = *req.Name
			if err := h.orgRepo.Update(c.Request.Context(), org); err != nil {
				slog.Error("Failed to update organization", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
				return
			}
		}

		if req.Admins != nil {
			if err := h.orgRepo.ReplaceAdmins(c.Request.Context(), orgID, req.Admins); err != nil {
				slog.Error("Failed to replace organization admins", slog.String("error", err.Error()))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
				return
			}
		}

		h.detail(c, orgID, http.StatusOK)
	}
}

// errString formats an error that may be nil
func errString(err error) string {
	if err == nil {
		return "not found"
	}
	return err.Error()
}

// @Summary      Delete organization
// @Description  Deletes an organization and, by cascade, its membership rows and projects. Owner only.
// @Tags         Organizations
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      204
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id} [delete]
// DeleteOrganizationHandler deletes an organization
// DELETE /api/v1/organizations/:id
func (h *OrganizationHandlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionOrgDelete) {
			return
		}

		if err := h.orgRepo.Delete(c.Request.Context(), orgID); err != nil {
			slog.Error("Failed to delete organization", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete organization"})
			return
		}

		h.audit.Record(&audit.LogEntry{
			Action:         audit.ActionOrgDeleted,
			ActorID:        c.GetString("user_id"),
			OrganizationID: orgID,
			IPAddress:      c.ClientIP(),
		})

		c.Status(http.StatusNoContent)
	}
}

type membershipRequest struct {
	Members []string `json:"members" binding:"required"`
}

// @Summary      Add members
// @Description  Merges the given user IDs into the organization's member set. Already-present members are ignored, so the operation is idempotent. Requires at least admin role.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  models.OrganizationDetail
// @Failure      400  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/add-member [put]
// AddMemberHandler adds members to an organization
// PUT /api/v1/organizations/:id/add-member
func (h *OrganizationHandlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionOrgAddMember) {
			return
		}

		var req membershipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "members is required"})
			return
		}

		if err := h.orgRepo.AddMembers(c.Request.Context(), orgID, req.Members); err != nil {
			slog.Error("Failed to add members", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add members"})
			return
		}

		h.audit.Record(&audit.LogEntry{
			Action:         audit.ActionMemberAdded,
			ActorID:        c.GetString("user_id"),
			OrganizationID: orgID,
			IPAddress:      c.ClientIP(),
			Metadata:       map[string]interface{}{"members": req.Members},
		})

		h.detail(c, orgID, http.StatusOK)
	}
}

// @Summary      Remove members
// @Description  Removes the given user IDs from the organization's member set. Members not named are preserved. Requires at least admin role.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  models.OrganizationDetail
// @Failure      400  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/v1/organizations/{id}/remove-member [put]
// RemoveMemberHandler removes members from an organization
// PUT /api/v1/organizations/:id/remove-member
func (h *OrganizationHandlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("id")
		if !h.authorize(c, orgID, authz.ActionOrgRemoveMember) {
			return
		}

		var req membershipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "members is required"})
			return
		}

		if err := h.orgRepo.RemoveMembers(c.Request.Context(), orgID, req.Members); err != nil {
			slog.Error("Failed to remove members", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove members"})
			return
		}

		h.audit.Record(&audit.LogEntry{
			Action:         audit.ActionMemberRemoved,
			ActorID:        c.GetString("user_id"),
			OrganizationID: orgID,
			IPAddress:      c.ClientIP(),
			Metadata:       map[string]interface{}{"members": req.Members},
		})

		h.detail(c, orgID, http.StatusOK)
	}
}
