// Copyright (c) 2026 Identra. All rights reserved.

package identity_test

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/identra/identra/internal/identity"
	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/profile"
	"github.com/identra/identra/pkg/pagination"
)

// # In-Memory Stores
//
// The fakes mirror the store contracts closely enough for orchestration
// tests: NotFound on missing rows, Conflict on duplicate email or
// identity, and injectable failures for the rollback paths.

type fakeIdentityStore struct {
	mu         sync.Mutex
	identities map[string]*identity.Identity

	failCreate bool
	failDelete bool
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{identities: make(map[string]*identity.Identity)}
}

func (store *fakeIdentityStore) clone(original *identity.Identity, includeSecrets bool) *identity.Identity {
	copied := *original
	if !includeSecrets {
		copied.PasswordHash = ""
		copied.RefreshTokenHash = ""
	}
	return &copied
}

func (store *fakeIdentityStore) Create(ctx context.Context, record *identity.Identity) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failCreate {
		return apperr.Internal(errStorageDown)
	}
	for _, existing := range store.identities {
		if existing.Email == record.Email {
			return apperr.Conflict("Email or provider account is already registered")
		}
	}

	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	store.identities[record.ID] = store.clone(record, true)
	return nil
}

func (store *fakeIdentityStore) FindByID(ctx context.Context, id string, includeSecrets bool) (*identity.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.identities[id]
	if !ok {
		return nil, apperr.NotFound("Identity")
	}
	return store.clone(record, includeSecrets), nil
}

func (store *fakeIdentityStore) FindByEmail(ctx context.Context, email string, includeSecrets bool) (*identity.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, record := range store.identities {
		if record.Email == email {
			return store.clone(record, includeSecrets), nil
		}
	}
	return nil, apperr.NotFound("Identity")
}

func (store *fakeIdentityStore) FindByGoogleID(ctx context.Context, googleID string) (*identity.Identity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, record := range store.identities {
		if record.GoogleID == googleID && googleID != "" {
			return store.clone(record, false), nil
		}
	}
	return nil, apperr.NotFound("Identity")
}

func (store *fakeIdentityStore) Update(ctx context.Context, record *identity.Identity) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.identities[record.ID]
	if !ok {
		return apperr.NotFound("Identity")
	}
	existing.Email = record.Email
	existing.PasswordHash = record.PasswordHash
	existing.GoogleID = record.GoogleID
	existing.Roles = record.Roles
	existing.UpdatedAt = time.Now()
	return nil
}

func (store *fakeIdentityStore) Delete(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failDelete {
		return apperr.Internal(errStorageDown)
	}
	if _, ok := store.identities[id]; !ok {
		return apperr.NotFound("Identity")
	}
	delete(store.identities, id)
	return nil
}

func (store *fakeIdentityStore) SetRefreshTokenHash(ctx context.Context, id, tokenHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.identities[id]
	if !ok {
		return apperr.NotFound("Identity")
	}
	record.RefreshTokenHash = tokenHash
	return nil
}

func (store *fakeIdentityStore) ClearRefreshTokenHash(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.identities[id]
	if !ok {
		return apperr.NotFound("Identity")
	}
	record.RefreshTokenHash = ""
	return nil
}

func (store *fakeIdentityStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.identities[id]
	if !ok {
		return apperr.NotFound("Identity")
	}
	record.LastLoginAt = &at
	return nil
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile

	failCreate bool
	failDelete bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*profile.Profile)}
}

func (store *fakeProfileStore) Create(ctx context.Context, record *profile.Profile) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failCreate {
		return apperr.Internal(errStorageDown)
	}
	for _, existing := range store.profiles {
		if existing.IdentityID == record.IdentityID {
			return apperr.Conflict("A profile already exists for this account")
		}
	}

	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	copied := *record
	store.profiles[record.ID] = &copied
	return nil
}

func (store *fakeProfileStore) FindByID(ctx context.Context, id string) (*profile.Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.profiles[id]
	if !ok {
		return nil, apperr.NotFound("Profile")
	}
	copied := *record
	return &copied, nil
}

func (store *fakeProfileStore) FindByIdentityID(ctx context.Context, identityID string) (*profile.Profile, error) {
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

func (store *fakeProfileStore) FindAll(ctx context.Context, params pagination.Params) ([]*profile.Profile, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	all := make([]*profile.Profile, 0, len(store.profiles))
	for _, record := range store.profiles {
		copied := *record
		all = append(all, &copied)
	}
	return all, len(all), nil
}

func (store *fakeProfileStore) FindByIdentityRole(ctx context.Context, role string, params pagination.Params) ([]*profile.Profile, int, error) {
	return nil, 0, nil
}

func (store *fakeProfileStore) Update(ctx context.Context, record *profile.Profile) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.profiles[record.ID]
	if !ok {
		return apperr.NotFound("Profile")
	}
	existing.Name = record.Name
	existing.Lastname = record.Lastname
	existing.Age = record.Age
	existing.UpdatedAt = time.Now()
	return nil
}

func (store *fakeProfileStore) Delete(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failDelete {
		return apperr.Internal(errStorageDown)
	}
	if _, ok := store.profiles[id]; !ok {
		return apperr.NotFound("Profile")
	}
	delete(store.profiles, id)
	return nil
}

// # Fake Provider

type fakeProvider struct {
	account     *identity.ExternalAccount
	exchangeErr error
	exchanges   int
}

func (provider *fakeProvider) AuthURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (provider *fakeProvider) Exchange(ctx context.Context, code string) (*identity.ExternalAccount, error) {
	provider.exchanges++
	if provider.exchangeErr != nil {
		return nil, provider.exchangeErr
	}
	return provider.account, nil
}

// # Shared Helpers

var errStorageDown = errTest("storage unavailable")

type errTest string

func (e errTest) Error() string { return string(e) }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
