// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
	"github.com/identra/identra/internal/profile"
)

// # Enumeration Resistance
//
// Login, refresh and the external callback never reveal which step
// failed. A wrong password, an unknown email and a revoked token all
// produce the identical Unauthorized message.

const invalidCredentialsMessage = "Invalid email or password"

// Session is what a successful authentication hands back to the delivery
// layer: the identity, its profile when one exists, and a fresh token
// pair.
type Session struct {
	Identity *Identity        `json:"identity"`
	Profile  *profile.Profile `json:"profile,omitempty"`
	Tokens   *TokenPair       `json:"-"`
}

// Service implements the authentication use cases on top of the stores,
// the registration saga and the token manager.
type Service struct {
	identities IdentityStore
	profiles   profile.ProfileStore
	rules      *Rules
	saga       *RegistrationSaga
	tokens     *TokenManager
	stateGuard *StateGuard
	provider   ExternalProvider
	logger     *slog.Logger
}

// NewService creates the identity service. The provider may be nil when
// the external login flow is not configured.
func NewService(
	identities IdentityStore,
	profiles profile.ProfileStore,
	rules *Rules,
	saga *RegistrationSaga,
	tokens *TokenManager,
	provider ExternalProvider,
	logger *slog.Logger,
) *Service {
	return &Service{
		identities: identities,
		profiles:   profiles,
		rules:      rules,
		saga:       saga,
		tokens:     tokens,
		stateGuard: NewStateGuard(),
		provider:   provider,
		logger:     logger.With(slog.String("component", "identity_service")),
	}
}

// Register opens a new account through the registration saga and signs
// the first token pair for it.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	result, err := service.saga.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	return service.openSession(ctx, result.IdentityID)
}

// Login authenticates an email/password pair.
func (service *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	identity, err := service.identities.FindByEmail(ctx, email, true)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(invalidCredentialsMessage)
		}
		return nil, err
	}

	// Provider-only accounts have no password to check.
	if !identity.HasPassword() || !sec.CheckPasswordHash(password, identity.PasswordHash) {
		return nil, apperr.Unauthorized(invalidCredentialsMessage)
	}

	return service.startSession(ctx, identity)
}

// Refresh rotates a refresh token into a new pair.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	identity, pair, err := service.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return service.buildSession(ctx, identity, pair)
}

// Logout revokes the identity's refresh credential.
func (service *Service) Logout(ctx context.Context, identityID string) error {
	if err := service.tokens.Revoke(ctx, identityID); err != nil {
		return err
	}
	service.logger.InfoContext(ctx, "logout", slog.String("identity_id", identityID))
	return nil
}

// ChangePassword verifies the current password, stores the new one and
// revokes the refresh credential so existing sessions must log in again.
func (service *Service) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) error {
	identity, err := service.identities.FindByID(ctx, identityID, true)
	if err != nil {
		return err
	}

	if !identity.HasPassword() {
		return apperr.Conflict("This account uses an external provider and has no password")
	}
	if !sec.CheckPasswordHash(currentPassword, identity.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	if err := service.rules.ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	identity.PasswordHash = newHash
	if err := service.identities.Update(ctx, identity); err != nil {
		return err
	}

	if err := service.tokens.Revoke(ctx, identityID); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "password_changed", slog.String("identity_id", identityID))
	return nil
}

// BeginExternalLogin produces the state value and provider URL that
// start the external flow.
func (service *Service) BeginExternalLogin() (state, authURL string, err error) {
	if service.provider == nil {
		return "", "", apperr.NotFound("External login")
	}

	state = service.stateGuard.GenerateState()
	return state, service.provider.AuthURL(state), nil
}

// CompleteExternalLogin finishes the external flow: verify the state,
// exchange the code, then find, link or create the matching account.
func (service *Service) CompleteExternalLogin(ctx context.Context, code, receivedState, storedState string) (*Session, error) {
	if service.provider == nil {
		return nil, apperr.NotFound("External login")
	}

	if err := service.stateGuard.VerifyState(receivedState, storedState); err != nil {
		return nil, err
	}

	account, err := service.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	identity, err := service.resolveExternalAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	return service.startSession(ctx, identity)
}

// resolveExternalAccount maps a provider account onto an identity. The
// provider subject wins; failing that an existing account with the same
// email gets linked; failing that a new account is registered.
func (service *Service) resolveExternalAccount(ctx context.Context, account *ExternalAccount) (*Identity, error) {
	identity, err := service.identities.FindByGoogleID(ctx, account.ProviderID)
	if err == nil {
		return identity, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	// The linking update writes the identity back whole, so it must be
	// loaded with secrets or the stored password hash would be blanked.
	email := strings.ToLower(strings.TrimSpace(account.Email))
	identity, err = service.identities.FindByEmail(ctx, email, true)
	if err == nil {
		identity.GoogleID = account.ProviderID
		if err := service.identities.Update(ctx, identity); err != nil {
			return nil, err
		}
		service.logger.InfoContext(ctx, "external_account_linked",
			slog.String("identity_id", identity.ID))
		return identity, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	result, err := service.saga.RegisterExternal(ctx, account)
	if err != nil {
		return nil, err
	}

	return service.identities.FindByID(ctx, result.IdentityID, false)
}

// DeleteAccount removes the caller's profile and identity.
func (service *Service) DeleteAccount(ctx context.Context, identityID string) error {
	return service.saga.DeleteAccount(ctx, identityID)
}

// openSession loads the identity and starts a session for it.
func (service *Service) openSession(ctx context.Context, identityID string) (*Session, error) {
	identity, err := service.identities.FindByID(ctx, identityID, false)
	if err != nil {
		return nil, err
	}
	return service.startSession(ctx, identity)
}

// startSession issues tokens, records the login and assembles the
// session payload.
func (service *Service) startSession(ctx context.Context, identity *Identity) (*Session, error) {
	pair, err := service.tokens.Issue(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := service.identities.TouchLastLogin(ctx, identity.ID, now); err != nil {
		// The session is already valid; a failed timestamp write is not
		// worth failing the login over.
		service.logger.WarnContext(ctx, "touch_last_login_failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()))
	} else {
		identity.LastLoginAt = &now
	}

	return service.buildSession(ctx, identity, pair)
}

func (service *Service) buildSession(ctx context.Context, identity *Identity, pair *TokenPair) (*Session, error) {
	// The identity may have been loaded with secrets for verification.
	// They never leave the service.
	identity.PasswordHash = ""
	identity.RefreshTokenHash = ""

	session := &Session{Identity: identity, Tokens: pair}

	linked, err := service.profiles.FindByIdentityID(ctx, identity.ID)
	if err == nil {
		session.Profile = linked
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	return session, nil
}
