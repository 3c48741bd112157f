// Copyright (c) 2026 Identra. All rights reserved.

/*
Package identity implements the authentication side of the user lifecycle.

It defines the Identity aggregate (credentials, roles, external provider
links) and the orchestration around it: the two-step registration saga, the
token lifecycle (issue, rotate, revoke), and the CSRF state guard for the
Google redirect flow.

# Architecture

This layer is the "Truth" of the system. The entities defined here have no
transport dependencies and encapsulate all business rules related to
authentication. Persistence is reached only through the [IdentityStore]
contract; the matching Profile aggregate lives in the sibling profile
package and is touched only by the saga and the deletion orchestrator.
*/
package identity

import (
	"time"
)

// # Domain Entities

// Identity represents a login credential record.
//
// At most one of password login and each external provider link is the
// active auth method per record, but both may coexist (a Google-linked
// account may also set a password).
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// PasswordHash holds the irreversible bcrypt hash of the credential
	// secret. Empty for external-provider-only accounts. Loaded only when a
	// store lookup asks for secrets, and never serialized.
	PasswordHash string `json:"-"`

	// GoogleID is the external provider subject. Unique when present.
	GoogleID string `json:"google_id,omitempty"`

	// Roles is a non-empty set, defaulting to the base user role.
	Roles []string `json:"roles"`

	// RefreshTokenHash is either empty (no active session) or the hash of
	// the single currently valid refresh token. Rotation always replaces it
	// atomically, never appends.
	RefreshTokenHash string `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasPassword reports whether password login is available for this identity.
func (identity *Identity) HasPassword() bool {
	return identity.PasswordHash != ""
}

// # Field Identifiers

// Field names for validation and response mapping in the identity domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldRefreshToken    = "refresh_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldMessage         = "message"
	FieldState           = "state"
	FieldCode            = "code"
)
