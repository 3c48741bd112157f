// Copyright (c) 2026 Identra. All rights reserved.

package sec

// # User Roles

// Role represents an authorization capability granted to an identity.
type Role string

const (
	// Unrestricted system access
	RoleAdmin Role = "admin"

	// Default role for standard registered identities
	RoleUser Role = "user"
)

// DefaultRoles is the role set assigned to every new identity.
func DefaultRoles() []string {
	return []string{string(RoleUser)}
}

// HasRole reports whether the given role set contains the required role.
//
// The request boundary invokes this capability check before reaching domain
// services; domain services themselves never inspect transport requests.
func HasRole(roles []string, required Role) bool {
	for _, r := range roles {
		if r == string(required) {
			return true
		}
	}
	return false
}
