// Copyright (c) 2026 Identra. All rights reserved.

package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/platform/sec"
)

// TokenPair bundles the two credentials handed out on every successful
// authentication. The access token is short-lived and stateless; the
// refresh token is long-lived and its hash is pinned to the identity row.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenManager owns the token lifecycle: issuing pairs, rotating refresh
// tokens, and revoking them. Exactly one refresh token is valid per
// identity at any moment.
type TokenManager struct {
	issuer     *sec.TokenIssuer
	identities IdentityStore
}

// NewTokenManager creates a new token lifecycle manager.
func NewTokenManager(issuer *sec.TokenIssuer, identities IdentityStore) *TokenManager {
	return &TokenManager{issuer: issuer, identities: identities}
}

// Issue signs a fresh access/refresh pair for the identity and stores the
// refresh token's hash, atomically replacing whatever hash was there
// before. Any previously issued refresh token stops verifying.
func (manager *TokenManager) Issue(ctx context.Context, identity *Identity) (*TokenPair, error) {
	accessToken, err := manager.issuer.SignAccess(identity.ID, identity.Email, identity.Roles)
	if err != nil {
		return nil, fmt.Errorf("sign_access_token_failed: %w", err)
	}

	refreshToken, err := manager.issuer.SignRefresh(identity.ID, identity.Email, identity.Roles)
	if err != nil {
		return nil, fmt.Errorf("sign_refresh_token_failed: %w", err)
	}

	if err := manager.identities.SetRefreshTokenHash(ctx, identity.ID, sec.HashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("store_refresh_token_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: time.Now().Add(manager.issuer.RefreshTTL()),
	}, nil
}

// Rotate verifies a presented refresh token against both the signature and
// the stored hash, then issues a replacement pair. The old token is dead
// after one successful rotation.
//
// Every verification failure collapses to the same Unauthorized error so a
// caller cannot distinguish a forged token from a stale one.
func (manager *TokenManager) Rotate(ctx context.Context, refreshToken string) (*Identity, *TokenPair, error) {
	claims, err := manager.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	identity, err := manager.identities.FindByID(ctx, claims.Subject, true)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, nil, err
	}

	// A revoked identity has no stored hash. Never run the comparison
	// against an empty credential.
	if identity.RefreshTokenHash == "" {
		return nil, nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	if !sec.CheckTokenHash(refreshToken, identity.RefreshTokenHash) {
		return nil, nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	pair, err := manager.Issue(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	return identity, pair, nil
}

// Revoke clears the stored refresh credential for the identity. Issued
// access tokens stay valid until their natural expiry.
func (manager *TokenManager) Revoke(ctx context.Context, identityID string) error {
	if err := manager.identities.ClearRefreshTokenHash(ctx, identityID); err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

// Verify checks an access token's signature and expiry. Used by callers
// that hold a raw token outside the middleware path.
func (manager *TokenManager) Verify(token string) (*sec.AuthClaims, error) {
	return manager.issuer.VerifyAccess(token)
}
