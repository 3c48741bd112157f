// Copyright (c) 2026 Identra. All rights reserved.

package profile_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/internal/platform/apperr"
	"github.com/identra/identra/internal/profile"
)

func intPtr(v int) *int { return &v }

/*
TestRules_ValidateNew covers the name, lastname and age rules for
profiles created during registration.
*/
func TestRules_ValidateNew(t *testing.T) {
	rules := profile.NewRules(nil)

	tests := []struct {
		name    string
		input   profile.NewInput
		isValid bool
	}{
		{"valid", profile.NewInput{Name: "Ada", Lastname: "Lovelace", Age: intPtr(30)}, true},
		{"valid_no_age", profile.NewInput{Name: "Ada", Lastname: "Lovelace"}, true},
		{"min_length_names", profile.NewInput{Name: "Al", Lastname: "Bo"}, true},
		{"age_zero", profile.NewInput{Name: "Ada", Lastname: "Lovelace", Age: intPtr(0)}, true},
		{"age_max", profile.NewInput{Name: "Ada", Lastname: "Lovelace", Age: intPtr(150)}, true},
		{"empty_name", profile.NewInput{Name: "", Lastname: "Lovelace"}, false},
		{"short_name", profile.NewInput{Name: "A", Lastname: "Lovelace"}, false},
		{"padded_short_name", profile.NewInput{Name: " A ", Lastname: "Lovelace"}, false},
		{"short_lastname", profile.NewInput{Name: "Ada", Lastname: "L"}, false},
		{"negative_age", profile.NewInput{Name: "Ada", Lastname: "Lovelace", Age: intPtr(-1)}, false},
		{"age_too_high", profile.NewInput{Name: "Ada", Lastname: "Lovelace", Age: intPtr(151)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.ValidateNew(tt.input)

			if tt.isValid {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
		})
	}
}

/*
TestRules_ValidateUpdate only checks the fields that are present.
*/
func TestRules_ValidateUpdate(t *testing.T) {
	rules := profile.NewRules(nil)
	name := "Ada"
	short := "A"

	assert.NoError(t, rules.ValidateUpdate(profile.UpdateInput{}))
	assert.NoError(t, rules.ValidateUpdate(profile.UpdateInput{Name: &name}))
	assert.NoError(t, rules.ValidateUpdate(profile.UpdateInput{Age: intPtr(150)}))

	assert.Error(t, rules.ValidateUpdate(profile.UpdateInput{Name: &short}))
	assert.Error(t, rules.ValidateUpdate(profile.UpdateInput{Age: intPtr(151)}))
	assert.Error(t, rules.ValidateUpdate(profile.UpdateInput{Age: intPtr(-1)}))
}

/*
TestNewProfileID mints namespaced, unique identifiers.
*/
func TestNewProfileID(t *testing.T) {
	first := profile.NewProfileID()
	second := profile.NewProfileID()

	assert.True(t, strings.HasPrefix(first, "profile-"))
	assert.NotEqual(t, first, second)
}
