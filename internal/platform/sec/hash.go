// Copyright (c) 2026 Identra. All rights reserved.

package sec

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
// bcrypt performs the comparison in constant time.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// HashToken computes an irreversible SHA-256 digest of an opaque token.
//
// # Why not bcrypt?
//
// Refresh tokens are high-entropy signed JWTs longer than bcrypt's 72-byte
// input limit. SHA-256 keeps the full token in the digest and the stored
// value still never reveals the token itself.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// CheckTokenHash compares a plain token against a stored [HashToken] digest
// in constant time.
func CheckTokenHash(token, existingHash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(existingHash)) == 1
}
