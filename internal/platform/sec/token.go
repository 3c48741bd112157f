// Copyright (c) 2026 Identra. All rights reserved.

package sec

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureToken returns a URL-safe random string built from n bytes of
// OS entropy. It backs the single-use OAuth state value.
//
// # Safety
//
// It panics only if the OS random source is unavailable (extremely rare).
// OS entropy failure is an unrecoverable system-level error.
func GenerateSecureToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("sec: failed to read entropy: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
