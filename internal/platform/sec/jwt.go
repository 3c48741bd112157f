// Copyright (c) 2026 Identra. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents the payload embedded inside a signed token.
//
// The subject carries the identity id, and the custom claims mirror the
// wire contract {email, sub, roles}.
type AuthClaims struct {
	jwt.RegisteredClaims

	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// TokenIssuer signs and verifies HS256 tokens with two disjoint secrets.
//
// # Key Separation
//
// An access token is signed with the access secret and a refresh token with
// the refresh secret. Because verification only ever uses the matching
// secret, presenting one kind of token where the other is expected fails at
// the signature check no matter how the claims look.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a TokenIssuer with explicit secrets and expiries.
// Secrets are injected here so the core stays testable with fixed keys.
func NewTokenIssuer(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("sec: access and refresh secrets must be distinct")
	}

	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (issuer *TokenIssuer) AccessTTL() time.Duration { return issuer.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (issuer *TokenIssuer) RefreshTTL() time.Duration { return issuer.refreshTTL }

// SignAccess creates a short-lived access token for the given identity.
func (issuer *TokenIssuer) SignAccess(subjectID, email string, roles []string) (string, error) {
	return issuer.sign(subjectID, email, roles, issuer.accessSecret, issuer.accessTTL)
}

// SignRefresh creates a long-lived refresh token for the given identity.
func (issuer *TokenIssuer) SignRefresh(subjectID, email string, roles []string) (string, error) {
	return issuer.sign(subjectID, email, roles, issuer.refreshSecret, issuer.refreshTTL)
}

// VerifyAccess checks the signature and validity of an access token.
func (issuer *TokenIssuer) VerifyAccess(tokenString string) (*AuthClaims, error) {
	return issuer.verify(tokenString, issuer.accessSecret)
}

// VerifyRefresh checks the signature and validity of a refresh token.
func (issuer *TokenIssuer) VerifyRefresh(tokenString string) (*AuthClaims, error) {
	return issuer.verify(tokenString, issuer.refreshSecret)
}

// VerifyToken implements the middleware TokenVerifier contract using the
// access secret.
func (issuer *TokenIssuer) VerifyToken(tokenString string) (*AuthClaims, error) {
	return issuer.VerifyAccess(tokenString)
}

func (issuer *TokenIssuer) sign(subjectID, email string, roles []string, secret []byte, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    issuer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
			// The jti keeps two tokens minted in the same second from
			// being byte-identical, which rotation depends on.
			ID: uuid.NewString(),
		},
		Email: email,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

func (issuer *TokenIssuer) verify(tokenString string, secret []byte) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
