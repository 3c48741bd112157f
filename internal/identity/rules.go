// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/constants"
	"github.com/identra/identra/internal/platform/validate"
	"github.com/identra/identra/pkg/uuidv7"
)

// # Identity Rules

// Rules holds the pure business rules for identity creation.
//
// Everything here except [Rules.CanCreate] is side-effect free.
type Rules struct {
	store IdentityStore
}

// NewRules constructs the identity rule service.
func NewRules(store IdentityStore) *Rules {
	return &Rules{store: store}
}

// ValidateCreation checks email format and password policy for a new
// password-based identity. No I/O.
func (rules *Rules) ValidateCreation(email, password string) error {
	v := &validate.Validator{}
	v.Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldPassword, password).
		Password(FieldPassword, password)
	return v.Err()
}

// ValidatePassword checks a candidate password against the policy.
func (rules *Rules) ValidatePassword(password string) error {
	v := &validate.Validator{}
	v.Required(FieldPassword, password).
		Password(FieldPassword, password)
	return v.Err()
}

// CanCreate reports whether no identity currently claims the email.
//
// # Advisory Only
//
// Two concurrent registrations can both pass this check before either
// writes. The storage unique constraint on email is the authoritative
// guard; the loser surfaces the Conflict mapped from that violation.
func (rules *Rules) CanCreate(ctx context.Context, email string) (bool, error) {
	_, err := rules.store.FindByEmail(ctx, email, false)
	if err == nil {
		return false, nil
	}
	if apperr.IsNotFound(err) {
		return true, nil
	}
	return false, err
}

// NewIdentityID produces a globally unique id in the identity namespace.
func NewIdentityID() string {
	return uuidv7.NewPrefixed(constants.IdentityIDPrefix)
}
