// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"time"
)

// # Identity Data Access

// IdentityStore defines the data access contract for identity records.
//
// # Secrets
//
// PasswordHash and RefreshTokenHash are hydrated only when includeSecrets is
// true; every other caller receives them blank so secret material never
// travels further than the credential checks that need it.
//
// # Atomicity
//
// Implementations must guarantee per-row atomicity: SetRefreshTokenHash is a
// single-row replace, so of two concurrent rotations using the same stale
// token exactly one wins. No cross-table transaction spanning identities and
// profiles is available — the registration saga exists precisely because of
// that absence.
type IdentityStore interface {
	// FindByID returns the identity with the given id.
	FindByID(ctx context.Context, id string, includeSecrets bool) (*Identity, error)

	// FindByEmail returns the identity with the given unique email.
	FindByEmail(ctx context.Context, email string, includeSecrets bool) (*Identity, error)

	// FindByGoogleID returns the identity linked to the given provider subject.
	FindByGoogleID(ctx context.Context, googleID string) (*Identity, error)

	// Create persists a brand-new identity. A duplicate email or provider id
	// surfaces as a Conflict error mapped from the unique constraint.
	Create(ctx context.Context, identity *Identity) error

	// Update persists changes to the identity's mutable fields
	// (email link, password hash, roles).
	Update(ctx context.Context, identity *Identity) error

	// Delete removes the identity row. Used by the saga compensation and the
	// deletion orchestrator.
	Delete(ctx context.Context, id string) error

	// SetRefreshTokenHash atomically replaces the stored refresh credential.
	SetRefreshTokenHash(ctx context.Context, id, tokenHash string) error

	// ClearRefreshTokenHash removes the stored refresh credential, revoking
	// the active session.
	ClearRefreshTokenHash(ctx context.Context, id string) error

	// TouchLastLogin records a successful authentication timestamp.
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
