// Copyright (c) 2026 Identra. All rights reserved.

package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/pkg/pagination"
)

// Service implements the profile use cases. Profiles are created only by
// the registration flow, so there is no public create operation here.
type Service struct {
	store  ProfileStore
	rules  *Rules
	logger *slog.Logger
}

// NewService creates the profile service.
func NewService(store ProfileStore, rules *Rules, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		rules:  rules,
		logger: logger.With(slog.String("component", "profile_service")),
	}
}

// List returns a page of profiles.
func (service *Service) List(ctx context.Context, params pagination.Params) ([]*Profile, int, error) {
	return service.store.FindAll(ctx, params)
}

// ListByRole returns a page of profiles whose identity carries the role.
func (service *Service) ListByRole(ctx context.Context, role string, params pagination.Params) ([]*Profile, int, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, 0, apperr.ValidationError("Role is required")
	}
	return service.store.FindByIdentityRole(ctx, role, params)
}

// Get returns a single profile by id.
func (service *Service) Get(ctx context.Context, id string) (*Profile, error) {
	return service.store.FindByID(ctx, id)
}

// GetByIdentity returns the profile linked to the identity.
func (service *Service) GetByIdentity(ctx context.Context, identityID string) (*Profile, error) {
	return service.store.FindByIdentityID(ctx, identityID)
}

// Update applies a partial update to a profile. Only the owner of the
// profile or an admin may change it.
func (service *Service) Update(ctx context.Context, claims *sec.AuthClaims, profileID string, input UpdateInput) (*Profile, error) {
	if err := service.rules.ValidateUpdate(input); err != nil {
		return nil, err
	}

	profile, err := service.store.FindByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if profile.IdentityID != claims.Subject && !sec.HasRole(claims.Roles, sec.RoleAdmin) {
		return nil, apperr.Forbidden("You can only modify your own profile")
	}

	if input.Name != nil {
		profile.Name = strings.TrimSpace(*input.Name)
	}
	if input.Lastname != nil {
		profile.Lastname = strings.TrimSpace(*input.Lastname)
	}
	if input.Age != nil {
		profile.Age = input.Age
	}

	if err := service.store.Update(ctx, profile); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "profile_updated",
		slog.String("profile_id", profile.ID),
		slog.String("identity_id", profile.IdentityID))

	return profile, nil
}

// IsComplete reports whether the profile has every descriptive field
// filled in, age included.
func (service *Service) IsComplete(ctx context.Context, identityID string) (bool, error) {
	profile, err := service.store.FindByIdentityID(ctx, identityID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	complete := profile.Name != "" && profile.Lastname != "" && profile.Age != nil
	return complete, nil
}
