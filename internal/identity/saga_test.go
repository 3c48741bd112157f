// Copyright (c) 2026 Identra. All rights reserved.

package identity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/identity"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/profile"
)

func newTestSaga(identities *fakeIdentityStore, profiles *fakeProfileStore) *identity.RegistrationSaga {
	return identity.NewRegistrationSaga(
		identities,
		profiles,
		identity.NewRules(identities),
		profile.NewRules(profiles),
		discardLogger(),
	)
}

func validRegisterInput() identity.RegisterInput {
	age := 30
	return identity.RegisterInput{
		Email:    "ada@identra.app",
		Password: "Sup3rSecret",
		Name:     "Ada",
		Lastname: "Lovelace",
		Age:      &age,
	}
}

/*
TestSaga_Register_Success creates both rows with namespaced ids and links
the profile to the identity.
*/
func TestSaga_Register_Success(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	result, err := saga.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.IdentityID, "auth-"))
	assert.True(t, strings.HasPrefix(result.ProfileID, "profile-"))

	created, err := identities.FindByID(context.Background(), result.IdentityID, true)
	require.NoError(t, err)
	assert.Equal(t, "ada@identra.app", created.Email)
	assert.Equal(t, []string{"user"}, created.Roles)
	assert.NotEmpty(t, created.PasswordHash)
	assert.NotEqual(t, "Sup3rSecret", created.PasswordHash)

	linked, err := profiles.FindByIdentityID(context.Background(), result.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, result.ProfileID, linked.ID)
	assert.Equal(t, "Ada", linked.Name)
	assert.Equal(t, "Lovelace", linked.Lastname)
	require.NotNil(t, linked.Age)
	assert.Equal(t, 30, *linked.Age)
}

/*
TestSaga_Register_InvalidCredentials rejects before any write. Neither
table may contain a row afterwards.
*/
func TestSaga_Register_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"bad_email", "not-an-email", "Sup3rSecret"},
		{"short_password", "ada@identra.app", "Ab1"},
		{"no_uppercase", "ada@identra.app", "abcdefg1"},
		{"no_digit", "ada@identra.app", "Abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identities := newFakeIdentityStore()
			profiles := newFakeProfileStore()
			saga := newTestSaga(identities, profiles)

			input := validRegisterInput()
			input.Email = tt.email
			input.Password = tt.password

			_, err := saga.Register(context.Background(), input)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)

			assert.Empty(t, identities.identities)
			assert.Empty(t, profiles.profiles)
		})
	}
}

/*
TestSaga_Register_DuplicateEmail surfaces a Conflict and writes nothing
new.
*/
func TestSaga_Register_DuplicateEmail(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	_, err := saga.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	_, err = saga.Register(context.Background(), validRegisterInput())
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)

	assert.Len(t, identities.identities, 1)
	assert.Len(t, profiles.profiles, 1)
}

/*
TestSaga_Register_ProfileValidationRollsBack exercises the compensation
path: the identity is created first, the profile step fails on a short
name, and the identity must be gone afterwards.
*/
func TestSaga_Register_ProfileValidationRollsBack(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	input := validRegisterInput()
	input.Name = "A"

	_, err := saga.Register(context.Background(), input)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)

	// Compensation removed the half-created identity.
	assert.Empty(t, identities.identities)
	assert.Empty(t, profiles.profiles)
}

/*
TestSaga_Register_ProfileStorageRollsBack rolls back the identity when
the profile insert itself fails.
*/
func TestSaga_Register_ProfileStorageRollsBack(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	profiles.failCreate = true
	saga := newTestSaga(identities, profiles)

	_, err := saga.Register(context.Background(), validRegisterInput())
	require.Error(t, err)
	assert.False(t, apperr.IsCompensationFailure(err))

	assert.Empty(t, identities.identities)
}

/*
TestSaga_Register_CompensationFailure covers the worst case: the profile
step fails and the identity delete fails too. The error must carry the
COMPENSATION_FAILED code naming the orphaned identity.
*/
func TestSaga_Register_CompensationFailure(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	profiles.failCreate = true
	identities.failDelete = true
	saga := newTestSaga(identities, profiles)

	_, err := saga.Register(context.Background(), validRegisterInput())
	require.Error(t, err)
	require.True(t, apperr.IsCompensationFailure(err))

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "COMPENSATION_FAILED", ae.Code)
	require.Error(t, ae.Cause)
	assert.Contains(t, ae.Cause.Error(), "orphaned identity auth-")

	// The orphan is still there; that is precisely what the error reports.
	assert.Len(t, identities.identities, 1)
}

/*
TestSaga_Register_OptionalAge allows registration without an age and
rejects out-of-range values.
*/
func TestSaga_Register_OptionalAge(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	input := validRegisterInput()
	input.Age = nil

	result, err := saga.Register(context.Background(), input)
	require.NoError(t, err)

	linked, err := profiles.FindByIdentityID(context.Background(), result.IdentityID)
	require.NoError(t, err)
	assert.Nil(t, linked.Age)

	badAge := 151
	bad := validRegisterInput()
	bad.Email = "grace@identra.app"
	bad.Age = &badAge

	_, err = saga.Register(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	assert.Len(t, identities.identities, 1)
}

/*
TestSaga_DeleteAccount removes the profile first and the identity second.
*/
func TestSaga_DeleteAccount(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	result, err := saga.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	require.NoError(t, saga.DeleteAccount(context.Background(), result.IdentityID))

	assert.Empty(t, identities.identities)
	assert.Empty(t, profiles.profiles)
}

/*
TestSaga_DeleteAccount_Unknown surfaces NotFound for a missing account.
*/
func TestSaga_DeleteAccount_Unknown(t *testing.T) {
	saga := newTestSaga(newFakeIdentityStore(), newFakeProfileStore())

	err := saga.DeleteAccount(context.Background(), "auth-missing")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSaga_DeleteAccount_MissingProfile surfaces an identity without a
profile as NotFound instead of deleting it. The orphan is evidence of an
unfinished earlier saga and needs an operator, not silent repair.
*/
func TestSaga_DeleteAccount_MissingProfile(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	result, err := saga.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	linked, err := profiles.FindByIdentityID(context.Background(), result.IdentityID)
	require.NoError(t, err)
	require.NoError(t, profiles.Delete(context.Background(), linked.ID))

	err = saga.DeleteAccount(context.Background(), result.IdentityID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// The orphaned identity stays in place for inspection.
	assert.Len(t, identities.identities, 1)
}

/*
TestSaga_DeleteAccount_ProfileDeleteFails keeps the identity when the
profile removal step fails, so the account can retry.
*/
func TestSaga_DeleteAccount_ProfileDeleteFails(t *testing.T) {
	identities := newFakeIdentityStore()
	profiles := newFakeProfileStore()
	saga := newTestSaga(identities, profiles)

	result, err := saga.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	profiles.failDelete = true
	err = saga.DeleteAccount(context.Background(), result.IdentityID)
	require.Error(t, err)

	// Identity untouched: deletion is retryable.
	assert.Len(t, identities.identities, 1)
}
