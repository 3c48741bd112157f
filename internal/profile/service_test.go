// Copyright (c) 2026 Identra. All rights reserved.

package profile_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/profile"
	"github.com/identra/identra/pkg/pagination"
)

type memoryStore struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{profiles: make(map[string]*profile.Profile)}
}

func (store *memoryStore) Create(ctx context.Context, record *profile.Profile) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.profiles {
		if existing.IdentityID == record.IdentityID {
			return apperr.Conflict("A profile already exists for this account")
		}
	}
	copied := *record
	store.profiles[record.ID] = &copied
	return nil
}

func (store *memoryStore) FindByID(ctx context.Context, id string) (*profile.Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.profiles[id]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	copied := *record
	return &copied, nil
}

func (store *memoryStore) FindByIdentityID(ctx context.Context, identityID string) (*profile.Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, record := range store.profiles {
		if record.IdentityID == identityID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Profile")
}

func (store *memoryStore) FindAll(ctx context.Context, params pagination.Params) ([]*profile.Profile, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	all := make([]*profile.Profile, 0, len(store.profiles))
	for _, record := range store.profiles {
		copied := *record
		all = append(all, &copied)
	}
	return all, len(all), nil
}

func (store *memoryStore) FindByIdentityRole(ctx context.Context, role string, params pagination.Params) ([]*profile.Profile, int, error) {
	return nil, 0, nil
}

func (store *memoryStore) Update(ctx context.Context, record *profile.Profile) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.profiles[record.ID]
	if !ok {
		return apperr.NotFound("Profile")
	}
	*existing = *record
	return nil
}

func (store *memoryStore) Delete(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.profiles[id]; !ok {
		return apperr.NotFound("Profile")
	}
	delete(store.profiles, id)
	return nil
}

func newTestService(store *memoryStore) *profile.Service {
	logger := slog.New(slog.DiscardHandler)
	return profile.NewService(store, profile.NewRules(store), logger)
}

func seedProfile(t *testing.T, store *memoryStore, identityID string) *profile.Profile {
	t.Helper()
	age := 30
	record := &profile.Profile{
		ID:         profile.NewProfileID(),
		IdentityID: identityID,
		Name:       "Ada",
		Lastname:   "Lovelace",
		Age:        &age,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), record))
	return record
}

func claimsFor(identityID string, roles ...string) *sec.AuthClaims {
	return &sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: identityID},
		Roles:            roles,
	}
}

/*
TestService_Update_Owner lets the owner change their own profile.
*/
func TestService_Update_Owner(t *testing.T) {
	store := newMemoryStore()
	service := newTestService(store)
	record := seedProfile(t, store, "auth-1")

	name := "  Grace  "
	updated, err := service.Update(context.Background(), claimsFor("auth-1", "user"), record.ID, profile.UpdateInput{
		Name: &name,
	})
	require.NoError(t, err)

	// Names are stored trimmed.
	assert.Equal(t, "Grace", updated.Name)
	assert.Equal(t, "Lovelace", updated.Lastname)
}

/*
TestService_Update_StrangerForbidden blocks a non-owner without the
admin role.
*/
func TestService_Update_StrangerForbidden(t *testing.T) {
	store := newMemoryStore()
	service := newTestService(store)
	record := seedProfile(t, store, "auth-1")

	name := "Mallory"
	_, err := service.Update(context.Background(), claimsFor("auth-2", "user"), record.ID, profile.UpdateInput{
		Name: &name,
	})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	// Unchanged.
	stored, err := store.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.Name)
}

/*
TestService_Update_AdminOverride lets an admin change any profile.
*/
func TestService_Update_AdminOverride(t *testing.T) {
	store := newMemoryStore()
	service := newTestService(store)
	record := seedProfile(t, store, "auth-1")

	age := 99
	updated, err := service.Update(context.Background(), claimsFor("auth-2", "user", "admin"), record.ID, profile.UpdateInput{
		Age: &age,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 99, *updated.Age)
}

/*
TestService_Update_Validation rejects bad input before touching storage.
*/
func TestService_Update_Validation(t *testing.T) {
	store := newMemoryStore()
	service := newTestService(store)
	record := seedProfile(t, store, "auth-1")

	age := 151
	_, err := service.Update(context.Background(), claimsFor("auth-1", "user"), record.ID, profile.UpdateInput{
		Age: &age,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestService_IsComplete reports completeness only when every descriptive
field, age included, is present.
*/
func TestService_IsComplete(t *testing.T) {
	store := newMemoryStore()
	service := newTestService(store)

	// No profile at all.
	complete, err := service.IsComplete(context.Background(), "auth-none")
	require.NoError(t, err)
	assert.False(t, complete)

	// Full profile.
	seedProfile(t, store, "auth-1")
	complete, err = service.IsComplete(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.True(t, complete)

	// Missing age.
	partial := &profile.Profile{
		ID:         profile.NewProfileID(),
		IdentityID: "auth-2",
		Name:       "Grace",
		Lastname:   "Hopper",
	}
	require.NoError(t, store.Create(context.Background(), partial))

	complete, err = service.IsComplete(context.Background(), "auth-2")
	require.NoError(t, err)
	assert.False(t, complete)
}

/*
TestService_ListByRole_RequiresRole rejects a blank role value.
*/
func TestService_ListByRole_RequiresRole(t *testing.T) {
	service := newTestService(newMemoryStore())

	_, _, err := service.ListByRole(context.Background(), "   ", pagination.Params{Page: 1, Limit: 20})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestRules_CanCreate is advisory: true only when the identity has no
profile yet.
*/
func TestRules_CanCreate(t *testing.T) {
	store := newMemoryStore()
	rules := profile.NewRules(store)

	ok, err := rules.CanCreate(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.True(t, ok)

	seedProfile(t, store, "auth-1")

	ok, err = rules.CanCreate(context.Background(), "auth-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
