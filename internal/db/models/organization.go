// Package models - organization.go defines the Organization model representing a
// tenant with a single owner and separate admin and member sets.
package models

import "time"

// Organization represents a tenant in the system
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrganizationDetail is an Organization enriched with its admin and member ID
// sets, as returned by retrieve and membership-mutation endpoints.
type OrganizationDetail struct {
	Organization
	Admins  []string `json:"admins"`
	Members []string `json:"members"`
}
