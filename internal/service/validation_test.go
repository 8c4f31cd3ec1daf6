package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name     string
		username string
		valid    bool
	}{
		{"simple", "alice", true},
		{"with digits and underscore", "club_lead_42", true},
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 20), true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 21), false},
		{"spaces", "alice smith", false},
		{"hyphen", "alice-smith", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUsername(tc.username)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"meets policy", "Secret1", true},
		{"minimum length", "Abc123", true},
		{"too short", "Ab1", false},
		{"too long", strings.Repeat("Aa1", 43), false},
		{"missing uppercase", "secret1", false},
		{"missing lowercase", "SECRET1", false},
		{"missing digit", "Secrets", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateClubName(t *testing.T) {
	assert.NoError(t, ValidateClubName("Chess Club"))
	assert.NoError(t, ValidateClubName("  Debate Society  "))
	assert.Error(t, ValidateClubName("ab"))
	assert.Error(t, ValidateClubName("   a   "))
	assert.Error(t, ValidateClubName(strings.Repeat("x", 51)))
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "alice@campus.edu", NormalizeIdentifier("  Alice@Campus.EDU "))
	assert.Equal(t, "bob", NormalizeIdentifier("Bob"))
}
