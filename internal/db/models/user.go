// Package models - user.go defines the User model for accounts with credentials,
// profile fields, and staff/active flags.
package models

import "time"

// User represents an account in the system. PasswordHash is never serialized.
type User struct {
	ID              string    `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	IsStaff         bool      `db:"is_staff" json:"is_staff"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	ProfileImageURL *string   `db:"profile_image_url" json:"profile_image_url"`
	DateJoined      time.Time `db:"date_joined" json:"date_joined"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PublicUser is the representation returned by list and detail endpoints.
// It omits the staff flag so account privileges are not enumerable by
// arbitrary callers.
type PublicUser struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	IsActive        bool      `json:"is_active"`
	ProfileImageURL *string   `json:"profile_image_url"`
	DateJoined      time.Time `json:"date_joined"`
}

// Public converts a User to its external representation
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		IsActive:        u.IsActive,
		ProfileImageURL: u.ProfileImageURL,
		DateJoined:      u.DateJoined,
	}
}
