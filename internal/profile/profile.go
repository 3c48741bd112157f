// Copyright (c) 2026 Identra. All rights reserved.

// Package profile owns the person-facing half of an account: the display
// attributes attached to an identity. A profile never exists on its own;
// it is created together with its identity during registration and
// removed together with it during account deletion.
package profile

import "time"

// Profile represents the descriptive record linked one-to-one with an
// identity.
type Profile struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Name       string    `json:"name"`
	Lastname   string    `json:"lastname"`
	Age        *int      `json:"age,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Field names used in validation error details.
const (
	FieldName     = "name"
	FieldLastname = "lastname"
	FieldAge      = "age"
)
