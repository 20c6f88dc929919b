// Package models - project.go defines the Project model. A project always
// belongs to exactly one organization.
package models

import "time"

// Project represents a project scoped to an organization
type Project struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
