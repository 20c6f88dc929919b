// Package authz centralizes authorization decisions for organization-scoped
// resources. Roles are resolved once per request through a single query, and
// every action maps to a minimum required role through the tables below, so
// permission rules live in data rather than scattered handler conditionals.
package authz

import (
	"context"
	"fmt"
)

// Role is a user's standing within an organization. Roles are strictly
// ordered; a higher role can do everything a lower role can. The owner is
// always at least an admin by construction of the ordering.
type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleAdmin
	RoleOwner
)

// String returns the wire/database representation of the role
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// ParseRole maps a database role string to a Role. Unknown strings map to RoleNone.
func ParseRole(s string) Role {
	switch s {
	case "owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	case "member":
		return RoleMember
	default:
		return RoleNone
	}
}

// AtLeast reports whether the role meets or exceeds min
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Action identifies an operation on an organization-scoped resource
type Action int

const (
	// Organization actions
	ActionOrgView Action = iota
	ActionOrgUpdate
	ActionOrgDelete
	ActionOrgAddMember
	ActionOrgRemoveMember

	// Project actions
	ActionProjectList
	ActionProjectView
	ActionProjectCreate
	ActionProjectUpdate
	ActionProjectDelete
)

// requiredRole is the capability table: the minimum role needed for each
// action. Changing a permission rule means changing a row here, nowhere else.
// RoleNone rows gate only on the organization existing; whether the caller
// must be authenticated at all is the router's concern, not this table's.
var requiredRole = map[Action]Role{
	ActionOrgView:         RoleNone,
	ActionOrgUpdate:       RoleAdmin,
	ActionOrgDelete:       RoleOwner,
	ActionOrgAddMember:    RoleAdmin,
	ActionOrgRemoveMember: RoleAdmin,

	ActionProjectList:   RoleNone,
	ActionProjectView:   RoleNone,
	ActionProjectCreate: RoleOwner,
	ActionProjectUpdate: RoleNone,
	ActionProjectDelete: RoleNone,
}

// RequiredRole returns the minimum role for an action. Unknown actions
// require RoleOwner so that a missing table entry fails closed.
func RequiredRole(action Action) Role {
	if role, ok := requiredRole[action]; ok {
		return role
	}
	return RoleOwner
}

// RoleSource resolves a user's role within an organization.
// Implemented by repositories.OrganizationRepository.
type RoleSource interface {
	GetRole(ctx context.Context, orgID, userID string) (role string, found bool, err error)
}

// Resolver answers authorization questions for organization-scoped actions
type Resolver struct {
	roles RoleSource
}

// NewResolver creates an authorization resolver backed by the given role source
func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{roles: roles}
}

// Resolve returns the user's role within the organization.
// Returns found=false when the organization does not exist.
func (r *Resolver) Resolve(ctx context.Context, orgID, userID string) (Role, bool, error) {
	role, found, err := r.roles.GetRole(ctx, orgID, userID)
	if err != nil {
		return RoleNone, false, fmt.Errorf("failed to resolve role: %w", err)
	}
	if !found {
		return RoleNone, false, nil
	}
	return ParseRole(role), true, nil
}

// Allow reports whether the user may perform action within the organization.
// Staff users bypass role checks entirely. Returns found=false when the
// organization does not exist, which callers should surface as a 404.
func (r *Resolver) Allow(ctx context.Context, orgID, userID string, isStaff bool, action Action) (allowed bool, found bool, err error) {
	role, found, err := r.Resolve(ctx, orgID, userID)
	if err != nil {
		return false, false, err
	}
	if !found {
		return false, false, nil
	}
	if isStaff {
		return true, true, nil
	}
	return role.AtLeast(RequiredRole(action)), true, nil
}
