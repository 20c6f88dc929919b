// project_repository.go implements ProjectRepository. Every query is scoped to
// the parent organization so a project can never be read or mutated through
// another organization's URL space.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/orbit-cloud/orbit-backend/internal/db/models"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project in project.OrganizationID
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (name, organization_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, project.Name, project.OrganizationID).Scan(
		&project.ID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID within an organization.
// Returns (nil, nil) when not found in that organization.
func (r *ProjectRepository) GetByID(ctx context.Context, orgID, projectID string) (*models.Project, error) {
	query := `
		SELECT id, name, organization_id, created_at, updated_at
		FROM projects
		WHERE id = $1 AND organization_id = $2
	`

	project := &models.Project{}
	err := r.db.GetContext(ctx, project, query, projectID, orgID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListByOrganization retrieves all projects belonging to an organization
func (r *ProjectRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	query := `
		SELECT id, name, organization_id, created_at, updated_at
		FROM projects
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	projects := make([]*models.Project, 0)
	if err := r.db.SelectContext(ctx, &projects, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

// Update renames a project within its organization
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET name = $3, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, project.ID, project.OrganizationID, project.Name); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// Delete deletes a project within an organization
func (r *ProjectRepository) Delete(ctx context.Context, orgID, projectID string) error {
	query := `DELETE FROM projects WHERE id = $1 AND organization_id = $2`
	if _, err := r.db.ExecContext(ctx, query, projectID, orgID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}
