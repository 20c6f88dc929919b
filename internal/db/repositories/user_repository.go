// Package repositories implements the data access layer (repository pattern)
// for the backend. Each repository type encapsulates all database queries for a
// domain entity. Handlers never issue SQL directly — all database access goes
// through this layer, which makes query logic testable in isolation and
// prevents accidental cross-domain data access.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/orbit-cloud/orbit-backend/internal/db/models"
)

// ErrDuplicateUsername is returned when a username is already taken.
// Email is deliberately not unique, so there is no email counterpart.
var ErrDuplicateUsername = errors.New("username already taken")

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique violation on the named constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
	}
	return false
}

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UserListFilter narrows ListUsers results. Nil fields mean "no filter".
type UserListFilter struct {
	IsActive *bool
	IsStaff  *bool
}

// CreateUser creates a new user. Returns ErrDuplicateUsername when the
// username is already taken.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.DateJoined = time.Now()
	user.UpdatedAt = user.DateJoined

	query := `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name,
		                   is_staff, is_active, profile_image_url, date_joined, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsStaff,
		user.IsActive,
		user.ProfileImageURL,
		user.DateJoined,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when not found.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, first_name, last_name,
		       is_staff, is_active, profile_image_url, date_joined, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.db.GetContext(ctx, user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) when not found.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, first_name, last_name,
		       is_staff, is_active, profile_image_url, date_joined, updated_at
		FROM users
		WHERE username = $1
	`

	user := &models.User{}
	err := r.db.GetContext(ctx, user, query, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateUser updates a user's mutable fields. The username is immutable; it is
// the login identity and other users may already reference it.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		    is_staff = $6, is_active = $7, profile_image_url = $8, updated_at = $9
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsStaff,
		user.IsActive,
		user.ProfileImageURL,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// DeleteUser deletes a user (cascades to organization ownership and memberships)
func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListUsers retrieves a paginated list of users, newest joined first,
// optionally filtered by the active and staff flags.
func (r *UserRepository) ListUsers(ctx context.Context, filter UserListFilter, limit, offset int) ([]*models.User, int, error) {
	where := "TRUE"
	args := []interface{}{}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.IsStaff != nil {
		args = append(args, *filter.IsStaff)
		where += fmt.Sprintf(" AND is_staff = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, username, email, password_hash, first_name, last_name,
		       is_staff, is_active, profile_image_url, date_joined, updated_at
		FROM users
		WHERE %s
		ORDER BY date_joined DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	users := make([]*models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// SetProfileImageURL stores the public URL of the user's uploaded profile image
func (r *UserRepository) SetProfileImageURL(ctx context.Context, userID, url string) error {
	query := `UPDATE users SET profile_image_url = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, url); err != nil {
		return fmt.Errorf("failed to set profile image url: %w", err)
	}
	return nil
}
