// Copyright (c) 2026 Identra. All rights reserved.

package profile

import (
	"context"

	"github.com/identra/identra/pkg/pagination"
)

// ProfileStore defines the persistence contract for profiles.
//
// Profiles and identities live in separate tables with no foreign key and
// no shared transaction; consistency between them is the registration
// saga's responsibility, not the store's.
type ProfileStore interface {
	// FindByID retrieves a profile by primary key. Returns a NotFound
	// error when absent.
	FindByID(ctx context.Context, id string) (*Profile, error)

	// FindByIdentityID retrieves the profile linked to an identity.
	// Returns a NotFound error when the identity has no profile.
	FindByIdentityID(ctx context.Context, identityID string) (*Profile, error)

	// FindAll retrieves a page of profiles ordered by creation time.
	FindAll(ctx context.Context, params pagination.Params) ([]*Profile, int, error)

	// FindByIdentityRole retrieves a page of profiles whose identity
	// carries the given role.
	FindByIdentityRole(ctx context.Context, role string, params pagination.Params) ([]*Profile, int, error)

	// Create persists a new profile. A second profile for the same
	// identity trips the unique constraint and returns a Conflict error.
	Create(ctx context.Context, profile *Profile) error

	// Update persists the profile's mutable fields. Returns a NotFound
	// error when the row no longer exists.
	Update(ctx context.Context, profile *Profile) error

	// Delete removes the profile permanently. Returns a NotFound error
	// when no row was removed.
	Delete(ctx context.Context, id string) error
}
