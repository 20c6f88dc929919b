// organization_repository.go implements OrganizationRepository, providing database
// queries for organization CRUD, membership management, and role resolution.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/orbit-cloud/orbit-backend/internal/db/models"
)

// OrganizationRepository handles database operations for organizations
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization owned by org.OwnerID
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, org.Name, org.OwnerID).Scan(
		&org.ID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetByID retrieves an organization by ID. Returns (nil, nil) when not found.
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org := &models.Organization{}
	err := r.db.GetContext(ctx, org, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// List retrieves a paginated list of organizations, newest first
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `
		SELECT id, name, owner_id, created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	orgs := make([]*models.Organization, 0)
	if err := r.db.SelectContext(ctx, &orgs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	return orgs, nil
}

// Count returns the total number of organizations
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM organizations`); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}

// Update renames an organization. Ownership transfer is not supported.
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, org.ID, org.Name); err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	return nil
}

// Delete deletes an organization (cascades to admins, members, and projects)
func (r *OrganizationRepository) Delete(ctx context.Context, orgID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

// === Membership operations ===

// ListMemberIDs retrieves the user IDs of an organization's members
func (r *OrganizationRepository) ListMemberIDs(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM organization_members
		WHERE organization_id = $1
		ORDER BY created_at
	`

	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return ids, nil
}

// ListAdminIDs retrieves the user IDs of an organization's admins
func (r *OrganizationRepository) ListAdminIDs(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM organization_admins
		WHERE organization_id = $1
		ORDER BY created_at
	`

	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}

	return ids, nil
}

// AddMembers merges the given user IDs into the organization's member set.
// Already-present members are tolerated, which makes the operation idempotent.
func (r *OrganizationRepository) AddMembers(ctx context.Context, orgID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO organization_members (organization_id, user_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, orgID, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to add members: %w", err)
	}

	return nil
}

// RemoveMembers recomputes membership as the existing set minus the given user
// IDs. Members not named in the request are preserved.
func (r *OrganizationRepository) RemoveMembers(ctx context.Context, orgID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `
		DELETE FROM organization_members
		WHERE organization_id = $1 AND user_id = ANY($2::uuid[])
	`

	if _, err := r.db.ExecContext(ctx, query, orgID, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to remove members: %w", err)
	}

	return nil
}

// ReplaceAdmins replaces the organization's admin set with the given user IDs
func (r *OrganizationRepository) ReplaceAdmins(ctx context.Context, orgID string, userIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM organization_admins WHERE organization_id = $1`, orgID); err != nil {
		return fmt.Errorf("failed to clear admins: %w", err)
	}

	if len(userIDs) > 0 {
		query := `
			INSERT INTO organization_admins (organization_id, user_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT (organization_id, user_id) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, orgID, pq.Array(userIDs)); err != nil {
			return fmt.Errorf("failed to insert admins: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin replacement: %w", err)
	}

	return nil
}

// GetRole resolves a user's role within an organization in a single query.
// The owner always resolves to "owner" regardless of junction table contents.
// Returns found=false when the organization does not exist.
func (r *OrganizationRepository) GetRole(ctx context.Context, orgID, userID string) (role string, found bool, err error) {
	query := `
		SELECT CASE
			WHEN o.owner_id = $2 THEN 'owner'
			WHEN EXISTS (SELECT 1 FROM organization_admins a
			             WHERE a.organization_id = o.id AND a.user_id = $2) THEN 'admin'
			WHEN EXISTS (SELECT 1 FROM organization_members m
			             WHERE m.organization_id = o.id AND m.user_id = $2) THEN 'member'
			ELSE 'none'
		END
		FROM organizations o
		WHERE o.id = $1
	`

	err = r.db.GetContext(ctx, &role, query, orgID, userID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve role: %w", err)
	}

	return role, true, nil
}

// GetDetail retrieves an organization together with its admin and member ID
// sets. Returns (nil, nil) when the organization does not exist.
func (r *OrganizationRepository) GetDetail(ctx context.Context, orgID string) (*models.OrganizationDetail, error) {
	org, err := r.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, nil
	}

	admins, err := r.ListAdminIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	members, err := r.ListMemberIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &models.OrganizationDetail{
		Organization: *org,
		Admins:       admins,
		Members:      members,
	}, nil
}
