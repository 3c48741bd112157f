// Copyright (c) 2026 Identra. All rights reserved.

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// # Why UUIDv7?
//
// It is the base of every aggregate id on the platform. Because it is
// time-sortable, it ensures clustered-index friendliness in PostgreSQL,
// preventing the index fragmentation common with random UUIDv4.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// # Safety
//
// It panics only if the OS random source is unavailable (extremely rare).
// OS entropy failure is an unrecoverable system-level error.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// NewPrefixed generates a UUIDv7 string with a namespace prefix so ids of
// different aggregates are distinguishable in logs and storage.
func NewPrefixed(prefix string) string {
	return prefix + New()
}
