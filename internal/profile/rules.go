// Copyright (c) 2026 Identra. All rights reserved.

package profile

import (
	"context"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/constants"
	"github.com/identra/identra/internal/platform/validate"
	"github.com/identra/identra/pkg/uuidv7"
)

// # Validation Rules

const (
	minNameLength = 2
	minAge        = 0
	maxAge        = 150
)

// NewInput carries the attributes for a profile created during
// registration.
type NewInput struct {
	Name     string
	Lastname string
	Age      *int
}

// UpdateInput carries the mutable attributes of an existing profile. Nil
// fields are left untouched.
type UpdateInput struct {
	Name     *string
	Lastname *string
	Age      *int
}

// Rules bundles profile validation and the advisory duplicate-profile
// check.
type Rules struct {
	store ProfileStore
}

// NewRules creates the profile rule set.
func NewRules(store ProfileStore) *Rules {
	return &Rules{store: store}
}

// ValidateNew checks the attributes of a profile about to be created.
// Names are trimmed before measuring so whitespace padding cannot satisfy
// the minimum length.
func (rules *Rules) ValidateNew(input NewInput) error {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		TrimmedMinLen(FieldName, input.Name, minNameLength).
		Required(FieldLastname, input.Lastname).
		TrimmedMinLen(FieldLastname, input.Lastname, minNameLength)

	if input.Age != nil {
		validator.Range(FieldAge, *input.Age, minAge, maxAge)
	}

	return validator.Err()
}

// ValidateUpdate checks a partial update. Only the fields present are
// validated.
func (rules *Rules) ValidateUpdate(input UpdateInput) error {
	validator := &validate.Validator{}

	if input.Name != nil {
		validator.Required(FieldName, *input.Name).
			TrimmedMinLen(FieldName, *input.Name, minNameLength)
	}
	if input.Lastname != nil {
		validator.Required(FieldLastname, *input.Lastname).
			TrimmedMinLen(FieldLastname, *input.Lastname, minNameLength)
	}
	if input.Age != nil {
		validator.Range(FieldAge, *input.Age, minAge, maxAge)
	}

	return validator.Err()
}

// CanCreate reports whether no profile exists yet for the identity.
//
// # Advisory Only
//
// The result can go stale between the check and the insert. The unique
// constraint on the identity column is the authoritative guard; this
// check exists to fail fast with a clear message.
func (rules *Rules) CanCreate(ctx context.Context, identityID string) (bool, error) {
	_, err := rules.store.FindByIdentityID(ctx, identityID)
	if err == nil {
		return false, nil
	}
	if apperr.IsNotFound(err) {
		return true, nil
	}
	return false, err
}

// NewProfileID mints a prefixed, time-ordered profile identifier.
func NewProfileID() string {
	return uuidv7.NewPrefixed(constants.ProfileIDPrefix)
}
