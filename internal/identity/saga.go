// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/profile"
)

// # Registration Saga
//
// An account is two rows in two tables with no shared transaction: the
// identity (credentials) and the profile (descriptive attributes). The
// saga creates them in order and, when the second write fails, deletes
// the identity it just created so no credential row is left without a
// profile.

type sagaState string

const (
	sagaPending         sagaState = "pending"
	sagaIdentityCreated sagaState = "identity_created"
	sagaProfileCreated  sagaState = "profile_created"
	sagaCompensating    sagaState = "compensating"
	sagaRolledBack      sagaState = "rolled_back"
)

// RegisterInput carries everything needed to open a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Lastname string
	Age      *int
}

// RegistrationResult reports the identifiers of the rows a completed
// registration created.
type RegistrationResult struct {
	IdentityID string
	ProfileID  string
}

// RegistrationSaga orchestrates account creation across the identity and
// profile stores.
type RegistrationSaga struct {
	identities    IdentityStore
	profiles      profile.ProfileStore
	identityRules *Rules
	profileRules  *profile.Rules
	logger        *slog.Logger
}

// NewRegistrationSaga creates the registration orchestrator.
func NewRegistrationSaga(
	identities IdentityStore,
	profiles profile.ProfileStore,
	identityRules *Rules,
	profileRules *profile.Rules,
	logger *slog.Logger,
) *RegistrationSaga {
	return &RegistrationSaga{
		identities:    identities,
		profiles:      profiles,
		identityRules: identityRules,
		profileRules:  profileRules,
		logger:        logger.With(slog.String("component", "registration_saga")),
	}
}

// Register opens a password-based account. Credential validation runs up
// front so an invalid email or weak password creates nothing at all.
func (saga *RegistrationSaga) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	if err := saga.identityRules.ValidateCreation(input.Email, input.Password); err != nil {
		return nil, err
	}

	available, err := saga.identityRules.CanCreate(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperr.Conflict("Email is already registered")
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash_password_failed: %w", err)
	}

	return saga.run(ctx, &Identity{
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: passwordHash,
		Roles:        sec.DefaultRoles(),
	}, profile.NewInput{
		Name:     input.Name,
		Lastname: input.Lastname,
		Age:      input.Age,
	})
}

// RegisterExternal opens an account backed by an external provider. The
// identity carries no password; the provider subject is the credential.
func (saga *RegistrationSaga) RegisterExternal(ctx context.Context, account *ExternalAccount) (*RegistrationResult, error) {
	available, err := saga.identityRules.CanCreate(ctx, account.Email)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperr.Conflict("Email is already registered")
	}

	return saga.run(ctx, &Identity{
		Email:    strings.ToLower(strings.TrimSpace(account.Email)),
		GoogleID: account.ProviderID,
		Roles:    sec.DefaultRoles(),
	}, profile.NewInput{
		Name:     account.FirstName,
		Lastname: account.LastName,
	})
}

// run executes the two creation steps with compensation. Both
// identifiers are minted before the first write so every log line of one
// attempt carries the same pair.
func (saga *RegistrationSaga) run(ctx context.Context, identity *Identity, profileInput profile.NewInput) (*RegistrationResult, error) {
	identity.ID = NewIdentityID()
	profileID := profile.NewProfileID()

	state := sagaPending
	logger := saga.logger.With(
		slog.String("identity_id", identity.ID),
		slog.String("profile_id", profileID),
	)

	logger.InfoContext(ctx, "registration_started", slog.String("state", string(state)))

	if err := saga.identities.Create(ctx, identity); err != nil {
		logger.WarnContext(ctx, "registration_identity_create_failed", slog.String("state", string(state)))
		return nil, err
	}
	state = sagaIdentityCreated
	logger.InfoContext(ctx, "registration_identity_created", slog.String("state", string(state)))

	// Profile attributes are validated after the identity write so a bad
	// name exercises the same rollback path as a storage failure.
	newProfile, err := saga.buildProfile(ctx, identity.ID, profileID, profileInput)
	if err == nil {
		err = saga.profiles.Create(ctx, newProfile)
	}
	if err != nil {
		return nil, saga.compensate(ctx, logger, identity.ID, err)
	}

	state = sagaProfileCreated
	logger.InfoContext(ctx, "registration_completed", slog.String("state", string(state)))

	return &RegistrationResult{IdentityID: identity.ID, ProfileID: profileID}, nil
}

func (saga *RegistrationSaga) buildProfile(ctx context.Context, identityID, profileID string, input profile.NewInput) (*profile.Profile, error) {
	if err := saga.profileRules.ValidateNew(input); err != nil {
		return nil, err
	}

	available, err := saga.profileRules.CanCreate(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperr.Conflict("A profile already exists for this account")
	}

	return &profile.Profile{
		ID:         profileID,
		IdentityID: identityID,
		Name:       strings.TrimSpace(input.Name),
		Lastname:   strings.TrimSpace(input.Lastname),
		Age:        input.Age,
	}, nil
}

// compensate deletes the identity created by a failed registration. The
// original failure is returned when the rollback succeeds; a rollback
// failure supersedes it because an orphaned credential row now exists.
func (saga *RegistrationSaga) compensate(ctx context.Context, logger *slog.Logger, identityID string, cause error) error {
	logger.WarnContext(ctx, "registration_compensating",
		slog.String("state", string(sagaCompensating)),
		slog.String("cause", cause.Error()),
	)

	if err := saga.identities.Delete(ctx, identityID); err != nil {
		logger.ErrorContext(ctx, "registration_compensation_failed",
			slog.String("state", string(sagaCompensating)),
			slog.String("error", err.Error()),
		)
		return apperr.CompensationFailed(identityID, err)
	}

	logger.InfoContext(ctx, "registration_rolled_back", slog.String("state", string(sagaRolledBack)))
	return cause
}

// DeleteAccount removes the profile first and the identity second, the
// reverse of creation order. A failure after the profile is gone leaves
// an orphaned identity that later deletion attempts report as NotFound
// until an operator resolves it.
func (saga *RegistrationSaga) DeleteAccount(ctx context.Context, identityID string) error {
	identity, err := saga.identities.FindByID(ctx, identityID, false)
	if err != nil {
		return err
	}

	logger := saga.logger.With(slog.String("identity_id", identity.ID))

	linked, err := saga.profiles.FindByIdentityID(ctx, identity.ID)
	switch {
	case err == nil:
		if err := saga.profiles.Delete(ctx, linked.ID); err != nil && !apperr.IsNotFound(err) {
			return err
		}
		logger.InfoContext(ctx, "account_profile_deleted", slog.String("profile_id", linked.ID))
	case apperr.IsNotFound(err):
		// An identity without a profile means an earlier saga did not
		// finish. Surface it for an operator instead of repairing it
		// by deletion.
		logger.ErrorContext(ctx, "account_profile_missing")
		return err
	default:
		return err
	}

	if err := saga.identities.Delete(ctx, identity.ID); err != nil {
		return err
	}

	logger.InfoContext(ctx, "account_deleted", slog.Time("at", time.Now()))
	return nil
}
