// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"crypto/subtle"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
)

// ExternalAccount is the normalized result of a completed provider
// exchange.
type ExternalAccount struct {
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}

// ExternalProvider abstracts the OAuth provider behind the external login
// flow.
type ExternalProvider interface {
	// AuthURL builds the provider authorization URL carrying the given
	// state value.
	AuthURL(state string) string

	// Exchange trades an authorization code for the provider's view of
	// the account.
	Exchange(ctx context.Context, code string) (*ExternalAccount, error)
}

// # State Guard
//
// The state value ties the callback to the browser that started the
// flow. It is generated here, handed to the provider via the auth URL,
// and echoed back in the callback; the copy for comparison travels in a
// cookie, never in server-side storage.

// StateGuard generates and verifies OAuth state values.
type StateGuard struct{}

// NewStateGuard creates the state guard.
func NewStateGuard() *StateGuard {
	return &StateGuard{}
}

// GenerateState mints an unguessable state value.
func (guard *StateGuard) GenerateState() string {
	return sec.GenerateSecureToken(20)
}

// VerifyState checks the state echoed by the provider against the copy
// the browser carried. Both must be present and equal; every failure
// mode collapses to the same Unauthorized error.
func (guard *StateGuard) VerifyState(received, stored string) error {
	if received == "" || stored == "" {
		return apperr.Unauthorized("Invalid authorization state")
	}
	if subtle.ConstantTimeCompare([]byte(received), []byte(stored)) != 1 {
		return apperr.Unauthorized("Invalid authorization state")
	}
	return nil
}

// GoogleProvider implements [ExternalProvider] against Google's OAuth2
// and userinfo endpoints.
type GoogleProvider struct {
	config       *oauth2.Config
	oidcProvider *gooidc.Provider
}

// GoogleConfig holds the credentials for the Google integration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// NewGoogleProvider creates the Google provider. It performs a discovery
// fetch against Google's issuer, so it needs network access at startup.
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.ClientID == "" || config.ClientSecret == "" || config.CallbackURL == "" {
		return nil, fmt.Errorf("google provider requires client id, client secret and callback url")
	}

	oidcProvider, err := gooidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("google_oidc_discovery_failed: %w", err)
	}

	return &GoogleProvider{
		oidcProvider: oidcProvider,
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.CallbackURL,
			Scopes:       []string{gooidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}, nil
}

// AuthURL builds the Google authorization URL for the given state.
func (provider *GoogleProvider) AuthURL(state string) string {
	return provider.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// googleUserInfo is the subset of Google's userinfo payload we consume.
type googleUserInfo struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Exchange trades the authorization code for tokens and resolves the
// account via the userinfo endpoint. Provider failures surface as 502s;
// they are Google's fault, not the caller's.
func (provider *GoogleProvider) Exchange(ctx context.Context, code string) (*ExternalAccount, error) {
	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.ExternalService("google", err)
	}

	userInfo, err := provider.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, apperr.ExternalService("google", err)
	}

	var info googleUserInfo
	if err := userInfo.Claims(&info); err != nil {
		return nil, apperr.ExternalService("google", err)
	}

	if info.Subject == "" || info.Email == "" {
		return nil, apperr.ExternalService("google", fmt.Errorf("incomplete userinfo payload"))
	}

	return &ExternalAccount{
		ProviderID: info.Subject,
		Email:      info.Email,
		FirstName:  info.GivenName,
		LastName:   info.FamilyName,
	}, nil
}
